package service

import (
	"errors"
	"testing"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/schema"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	model schema.Model
	sent  []codec.Envelope
	reply map[string]any
	err   error
}

func (f *fakeTarget) Model() *schema.Model {
	return &f.model
}

func (f *fakeTarget) Send(env codec.Envelope) (map[string]any, error) {
	f.sent = append(f.sent, env)
	return f.reply, f.err
}

func echoTarget() *fakeTarget {
	return &fakeTarget{
		model: schema.Model{
			Type:                    "requester",
			RequiredArguments:       schema.Sections{"to_echo": schema.String},
			RequiredReturnArguments: schema.Sections{"echoed": schema.String},
		},
		reply: map[string]any{"echoed": "hi"},
	}
}

func TestToSendWorkflowIDIncrements(t *testing.T) {
	tg := echoTarget()
	toSend := newToSend(targets{connections: map[string]target{"echo": tg}}, "W", true, nil)

	for i := 0; i < 4; i++ {
		_, err := toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
		require.NoError(t, err)
	}

	var ids []string
	for _, env := range tg.sent {
		ids = append(ids, env.WorkflowID)
	}
	assert.Equal(t, []string{"W", "W_1", "W_2", "W_3"}, ids)
}

func TestToSendWorkflowIDConstant(t *testing.T) {
	tg := echoTarget()
	toSend := newToSend(targets{connections: map[string]target{"echo": tg}}, "W", false, nil)

	for i := 0; i < 4; i++ {
		_, err := toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
		require.NoError(t, err)
	}

	for _, env := range tg.sent {
		assert.Equal(t, "W", env.WorkflowID)
	}
}

func TestToSendWithoutWorkflowID(t *testing.T) {
	tg := echoTarget()
	toSend := newToSend(targets{connections: map[string]target{"echo": tg}}, "", true, nil)

	_, err := toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
	require.NoError(t, err)
	_, err = toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "", tg.sent[1].WorkflowID)
}

func TestToSendValidation(t *testing.T) {
	tg := echoTarget()
	pub := &fakeTarget{model: schema.Model{Type: "full_update_out", OptionalArguments: schema.Sections{"bid": schema.Int}}}
	m := NewMetrics()
	toSend := newToSend(targets{
		connections: map[string]target{"echo": tg},
		states:      map[string]target{"prices": pub},
	}, "", false, m)

	ret, err := toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echoed": "hi"}, ret)

	_, err = toSend("queue", "echo", nil)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = toSend(svcframe.KindState, "echo", nil)
	assert.True(t, errors.Is(err, ErrUnknownName))

	_, err = toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": 1})
	var se *schema.SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi", "extra": true})
	assert.ErrorAs(t, err, &se)
	assert.Len(t, tg.sent, 1, "invalid arguments must not be sent")

	// bytes were exchanged but the reply breaks the contract
	tg.reply = map[string]any{"wrong": "hi"}
	_, err = toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
	assert.ErrorAs(t, err, &se)
	assert.Len(t, tg.sent, 2)

	tg.err = errors.New("connection refused")
	_, err = toSend(svcframe.KindConnection, "echo", map[string]any{"to_echo": "hi"})
	assert.EqualError(t, err, "connection refused")

	ret, err = toSend(svcframe.KindState, "prices", nil)
	require.NoError(t, err)
	assert.Nil(t, ret)
	assert.Len(t, pub.sent, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToSendTotal.WithLabelValues("connection", "echo", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ToSendTotal.WithLabelValues("connection", "echo", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToSendTotal.WithLabelValues("state", "prices", "ok")))
}
