// Package socket builds the raw zmq sockets behind connections and states.
//
// All sockets of a process share one zmq context, owned by a Factory. Replyers and
// publishers bind; requesters and subscribers connect. A publisher in x-pub mode connects
// instead (to a bus or to a binder subscriber), and a binder subscriber binds so that many
// publishers can reach it.
package socket

import (
	"sync"
	"time"

	"github.com/dermesser/svcframe/log"
	smgr "github.com/dermesser/svcframe/securitymanager"

	zmq "github.com/pebbe/zmq4"
)

// DefaultSettleDelay is how long a publish/subscribe socket waits after creation, to avoid
// losing the first messages to the slow-joiner race.
const DefaultSettleDelay = 150 * time.Millisecond

// Options tune socket creation.
type Options struct {
	// Publisher connects instead of binding (XPub/XSub bus topology).
	IsXPub bool
	// Subscriber binds instead of connecting (many publishers, one subscriber).
	IsBinder bool
	// Prefix a subscriber filters on. Empty subscribes to everything.
	Subscription []byte
	// Pause after creating a publisher or subscriber.
	SettleDelay time.Duration
}

// Factory owns the process-wide zmq context and creates sockets from it.
// It is safe for concurrent use.
type Factory struct {
	ctx *zmq.Context

	binderSecurity    *smgr.BinderSecurityManager
	connectorSecurity *smgr.ConnectorSecurityManager

	mu      sync.Mutex
	sockets map[*zmq.Socket]struct{}
	closed  bool
}

// NewFactory creates a factory with a fresh context. Either security manager may be nil.
func NewFactory(binder *smgr.BinderSecurityManager, connector *smgr.ConnectorSecurityManager) (*Factory, error) {
	ctx, err := zmq.NewContext()

	if err != nil {
		return nil, &TransportError{Op: "create context", Err: err}
	}

	return &Factory{
		ctx:               ctx,
		binderSecurity:    binder,
		connectorSecurity: connector,
		sockets:           make(map[*zmq.Socket]struct{}),
	}, nil
}

func (f *Factory) Context() *zmq.Context {
	return f.ctx
}

// Requester returns a REQ socket connected to address.
func (f *Factory) Requester(address string) (*zmq.Socket, error) {
	return f.build(zmq.REQ, address, false, nil, 0)
}

// Replyer returns a REP socket bound to address.
func (f *Factory) Replyer(address string) (*zmq.Socket, error) {
	return f.build(zmq.REP, address, true, nil, 0)
}

// Publisher returns a PUB socket. It binds address unless opts.IsXPub is set.
func (f *Factory) Publisher(address string, opts Options) (*zmq.Socket, error) {
	return f.build(zmq.PUB, address, !opts.IsXPub, nil, opts.SettleDelay)
}

// Subscriber returns a SUB socket filtering on opts.Subscription. It connects to address
// unless opts.IsBinder is set.
func (f *Factory) Subscriber(address string, opts Options) (*zmq.Socket, error) {
	sub := opts.Subscription
	if sub == nil {
		sub = []byte{}
	}
	return f.build(zmq.SUB, address, opts.IsBinder, sub, opts.SettleDelay)
}

func (f *Factory) build(t zmq.Type, address string, bind bool, subscription []byte, settle time.Duration) (*zmq.Socket, error) {
	url, err := ToUrl(address)

	if err != nil {
		return nil, &TransportError{Op: "parse address", Address: address, Err: err}
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, &TransportError{Op: "create " + t.String(), Address: address, Err: zmq.ETERM}
	}
	sock, err := f.ctx.NewSocket(t)
	f.mu.Unlock()

	if err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Error when creating", t.String(), "socket:", err.Error())
		return nil, &TransportError{Op: "create " + t.String(), Address: address, Err: err}
	}

	sock.SetLinger(0)
	sock.SetIpv6(true)

	if bind {
		err = f.binderSecurity.ApplyToBindingSocket(sock)
	} else {
		err = f.connectorSecurity.ApplyToConnectingSocket(sock)
	}

	if err != nil {
		sock.Close()
		log.Log(log.LOGLEVEL_ERRORS, "Error when setting up security:", err.Error())
		return nil, &TransportError{Op: "secure " + t.String(), Address: address, Err: err}
	}

	if subscription != nil {
		err = sock.SetSubscribe(string(subscription))

		if err != nil {
			sock.Close()
			return nil, &TransportError{Op: "subscribe", Address: address, Err: err}
		}
	}

	if bind {
		err = sock.Bind(bindUrl(url))
	} else {
		sock.SetReconnectIvl(100 * time.Millisecond)
		err = sock.Connect(connectUrl(url))
	}

	if err != nil {
		sock.Close()
		op := "connect"
		if bind {
			op = "bind"
		}
		log.Log(log.LOGLEVEL_ERRORS, "Could not", op, t.String(), "socket to", url, ":", err.Error())
		return nil, &TransportError{Op: op, Address: url, Err: err}
	}

	log.Log(log.LOGLEVEL_DEBUG, "Created", t.String(), "socket on", url, "bind:", bind)

	f.mu.Lock()
	f.sockets[sock] = struct{}{}
	f.mu.Unlock()

	if settle > 0 {
		time.Sleep(settle)
	}

	return sock, nil
}

// CloseSocket closes a socket created by this factory. Closing twice is a no-op.
func (f *Factory) CloseSocket(sock *zmq.Socket) error {
	if sock == nil {
		return nil
	}

	f.mu.Lock()
	_, owned := f.sockets[sock]
	delete(f.sockets, sock)
	f.mu.Unlock()

	if !owned {
		return nil
	}
	return sock.Close()
}

// Close closes every remaining socket and terminates the context.
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	remaining := f.sockets
	f.sockets = make(map[*zmq.Socket]struct{})
	f.mu.Unlock()

	for sock := range remaining {
		sock.Close()
	}

	return f.ctx.Term()
}
