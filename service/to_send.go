package service

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
)

// target is the outbound side of a connection or state.
type target interface {
	Model() *schema.Model
	Send(env codec.Envelope) (map[string]any, error)
}

// targets are the outbound channels to_send resolves names in.
type targets struct {
	connections map[string]target
	states      map[string]target
}

func (t targets) lookup(kind svcframe.Kind, name string) (target, error) {
	var table map[string]target

	switch kind {
	case svcframe.KindConnection:
		table = t.connections
	case svcframe.KindState:
		table = t.states
	default:
		return nil, fmt.Errorf("to_send: %w %q", ErrUnknownKind, kind)
	}

	tg, ok := table[name]

	if !ok {
		return nil, fmt.Errorf("to_send: %w: no outbound %s %q", ErrUnknownName, kind, name)
	}
	return tg, nil
}

// workflowIDs hands out the id attached to each send. With increment set, the n-th call
// (counting from zero) gets "<id>_<n>" and the first gets the plain id.
type workflowIDs struct {
	id        string
	increment bool
	calls     atomic.Int64
}

func (w *workflowIDs) next() string {
	if w.id == "" {
		return ""
	}
	n := w.calls.Add(1) - 1
	if !w.increment || n == 0 {
		return w.id
	}
	return w.id + "_" + strconv.FormatInt(n, 10)
}

// newToSend builds the outbound function handed to handlers and hooks.
func newToSend(t targets, workflowID string, increment bool, m *Metrics) svcframe.ToSend {
	ids := &workflowIDs{id: workflowID, increment: increment}

	return func(kind svcframe.Kind, name string, args map[string]any) (map[string]any, error) {
		ret, err := send(t, ids, kind, name, args)

		if m != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.ToSendTotal.WithLabelValues(string(kind), name, status).Inc()
		}
		return ret, err
	}
}

func send(t targets, ids *workflowIDs, kind svcframe.Kind, name string, args map[string]any) (map[string]any, error) {
	tg, err := t.lookup(kind, name)

	if err != nil {
		return nil, err
	}

	model := tg.Model()

	if args == nil {
		args = map[string]any{}
	}
	if err = model.ValidateArgs(args); err != nil {
		return nil, fmt.Errorf("to_send %s %q: invalid arguments: %w", kind, name, err)
	}

	env := codec.Envelope{Args: args, WorkflowID: ids.next()}
	ret, err := tg.Send(env)

	if err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Send on", kind, name, "failed:", err.Error())
		return nil, err
	}

	if !model.HasReturn() {
		return ret, nil
	}

	if ret == nil {
		ret = map[string]any{}
	}
	if err = model.ValidateReturn(ret); err != nil {
		return nil, fmt.Errorf("to_send %s %q: invalid return arguments: %w", kind, name, err)
	}
	return ret, nil
}
