package socket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFactory(t *testing.T) *Factory {
	f, err := NewFactory(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestToUrl(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:9000":       "tcp://127.0.0.1:9000",
		"localhost:80":         "tcp://localhost:80",
		":7000":                "tcp://*:7000",
		"ipc:///tmp/x.sock":    "ipc:///tmp/x.sock",
		"inproc://svc-replyer": "inproc://svc-replyer",
	}
	for in, want := range cases {
		got, err := ToUrl(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "no-port", "host:"} {
		_, err := ToUrl(bad)
		assert.Error(t, err, bad)
	}
}

func TestRequesterReplyer(t *testing.T) {
	f := newTestFactory(t)

	rep, err := f.Replyer("inproc://test-reqrep")
	require.NoError(t, err)
	req, err := f.Requester("inproc://test-reqrep")
	require.NoError(t, err)

	_, err = req.SendBytes([]byte("ping"), 0)
	require.NoError(t, err)

	poller := NewPoller(rep)
	ready, err := poller.Poll(time.Second)
	require.NoError(t, err)
	require.Len(t, ready, 1)

	msg, err := rep.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg))

	_, err = rep.SendBytes([]byte("pong"), 0)
	require.NoError(t, err)
	msg, err = req.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(msg))
}

func TestPublisherSubscriberFiltersPrefix(t *testing.T) {
	f := newTestFactory(t)

	pub, err := f.Publisher("inproc://test-pubsub", Options{SettleDelay: 0})
	require.NoError(t, err)
	sub, err := f.Subscriber("inproc://test-pubsub", Options{Subscription: []byte("a"), SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = pub.SendBytes([]byte("b-ignored"), 0)
	require.NoError(t, err)
	_, err = pub.SendBytes([]byte("a-delivered"), 0)
	require.NoError(t, err)

	poller := NewPoller(sub)
	ready, err := poller.Poll(time.Second)
	require.NoError(t, err)
	require.Len(t, ready, 1)

	msg, err := sub.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "a-delivered", string(msg))

	ready, err = poller.Poll(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestBinderSubscriberWithConnectingPublishers(t *testing.T) {
	f := newTestFactory(t)

	sub, err := f.Subscriber("inproc://test-binder", Options{IsBinder: true})
	require.NoError(t, err)
	pub1, err := f.Publisher("inproc://test-binder", Options{IsXPub: true})
	require.NoError(t, err)
	pub2, err := f.Publisher("inproc://test-binder", Options{IsXPub: true, SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)

	pub1.SendBytes([]byte("one"), 0)
	pub2.SendBytes([]byte("two"), 0)

	got := map[string]bool{}
	poller := NewPoller(sub)
	for len(got) < 2 {
		ready, err := poller.Poll(time.Second)
		require.NoError(t, err)
		require.NotEmpty(t, ready, "timed out, got %v", got)
		msg, err := sub.RecvBytes(0)
		require.NoError(t, err)
		got[string(msg)] = true
	}
	assert.Equal(t, map[string]bool{"one": true, "two": true}, got)
}

func TestBindFailureIsTransportError(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.Replyer("inproc://test-dup")
	require.NoError(t, err)
	_, err = f.Replyer("inproc://test-dup")

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "bind", te.Op)

	_, err = f.Requester("not an address")
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "parse address", te.Op)
}

func TestEmptyPollerTimesOut(t *testing.T) {
	start := time.Now()
	ready, err := NewPoller().Poll(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestBusRelays(t *testing.T) {
	f := newTestFactory(t)
	ctx, cancel := context.WithCancel(context.Background())

	busDone := make(chan error, 1)
	go func() { busDone <- f.RunBus(ctx, "inproc://bus-in", "inproc://bus-out") }()
	time.Sleep(50 * time.Millisecond)

	sub, err := f.Subscriber("inproc://bus-out", Options{})
	require.NoError(t, err)
	pub, err := f.Publisher("inproc://bus-in", Options{IsXPub: true, SettleDelay: 100 * time.Millisecond})
	require.NoError(t, err)

	_, err = pub.SendBytes([]byte("relayed"), 0)
	require.NoError(t, err)

	ready, err := NewPoller(sub).Poll(time.Second)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	msg, err := sub.RecvBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "relayed", string(msg))

	f.CloseSocket(sub)
	f.CloseSocket(pub)
	cancel()
	select {
	case err := <-busDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not stop")
	}
}
