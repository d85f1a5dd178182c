package connection

import (
	"fmt"
	"sync"

	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"

	zmq "github.com/pebbe/zmq4"
)

var requesterVariant = Variant{
	Type:      TypeRequester,
	Addresses: schema.Contract{Required: schema.Sections{"requester": schema.String}},
}

// Requester sends a request to a Replyer and blocks for exactly one reply. There is no
// timeout: a replyer that never answers stalls the caller.
type Requester struct {
	base

	// REQ sockets must alternate send and receive; mu keeps concurrent callers in line.
	mu   sync.Mutex
	sock *zmq.Socket
}

func NewRequester(name string, model schema.Model, addresses map[string]string) (*Requester, error) {
	b, err := newBase(name, model, addresses, requesterVariant)

	if err != nil {
		return nil, err
	}
	if !b.model.HasReturn() {
		return nil, &schema.ModelError{Section: schema.SectionRequiredReturnArguments, Reason: fmt.Sprintf("requester %q declares no return arguments", name)}
	}

	return &Requester{base: b}, nil
}

func (r *Requester) CompatibleTypes() []string {
	return []string{TypeReplyer}
}

func (r *Requester) AddressesModel() schema.Contract {
	return requesterVariant.Addresses
}

func (r *Requester) CreationArgumentsModel() schema.Contract {
	return requesterVariant.CreationArguments
}

func (r *Requester) InboundSocketsAndTriggeredFunctions() []Inbound {
	return nil
}

func (r *Requester) RuntimeSetup(f *socket.Factory) error {
	sock, err := f.Requester(r.addresses["requester"])

	if err != nil {
		return err
	}

	r.factory, r.sock = f, sock
	return nil
}

// Send transmits env and returns the reply's return arguments.
func (r *Requester) Send(env codec.Envelope) (map[string]any, error) {
	return Request(&r.mu, r.sock, r.name, env)
}

func (r *Requester) Close() error {
	if r.factory == nil {
		return nil
	}
	return r.factory.CloseSocket(r.sock)
}

// Request performs one request/reply exchange on a REQ socket guarded by mu.
func Request(mu *sync.Mutex, sock *zmq.Socket, channel string, env codec.Envelope) (map[string]any, error) {
	if sock == nil {
		return nil, fmt.Errorf("requester %q: not set up", channel)
	}

	frame, err := codec.EncodeEnvelope(env)

	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	if log.IsLoggingEnabled(log.LOGLEVEL_DEBUG) {
		log.Log(log.LOGLEVEL_DEBUG, "Requesting on", channel, "workflow", env.WorkflowID)
	}

	_, err = sock.SendBytes(frame, 0)

	if err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Could not send request on", channel, ":", err.Error())
		return nil, &socket.TransportError{Op: "send", Address: channel, Err: err}
	}

	raw, err := sock.RecvBytes(0)

	if err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Could not receive reply on", channel, ":", err.Error())
		return nil, &socket.TransportError{Op: "receive", Address: channel, Err: err}
	}

	reply, err := codec.DecodeEnvelope(raw)

	if err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &RemoteError{Connection: channel, Message: reply.Error}
	}
	if reply.ReturnArgs == nil {
		reply.ReturnArgs = map[string]any{}
	}

	return reply.ReturnArgs, nil
}
