package state

import (
	"sync"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/connection"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"

	zmq "github.com/pebbe/zmq4"
)

var fullUpdateOutVariant = variant{
	Variant: connection.Variant{
		Type:              TypeFullUpdateOut,
		Addresses:         schema.Contract{Required: schema.Sections{"publisher": schema.String}},
		CreationArguments: schema.Contract{Optional: connection.PublisherCreationArguments},
	},
}

// FullUpdateOut broadcasts the complete state on every Send. Nothing is acknowledged.
type FullUpdateOut struct {
	base

	mu   sync.Mutex
	sock *zmq.Socket
}

func NewFullUpdateOut(name string, model schema.Model, addresses map[string]string) (*FullUpdateOut, error) {
	b, err := newBase(name, model, addresses, fullUpdateOutVariant)

	if err != nil {
		return nil, err
	}

	return &FullUpdateOut{base: b}, nil
}

func (s *FullUpdateOut) CompatibleTypes() []string {
	return []string{TypeFullUpdateIn}
}

func (s *FullUpdateOut) InboundSocketsAndTriggeredFunctions() []connection.Inbound {
	return nil
}

func (s *FullUpdateOut) RuntimeSetup(f *socket.Factory) error {
	sock, err := f.Publisher(s.addresses["publisher"], s.options.SocketOptions(nil))

	if err != nil {
		return err
	}

	s.factory, s.sock = f, sock
	return nil
}

func (s *FullUpdateOut) Send(env codec.Envelope) (map[string]any, error) {
	return nil, connection.Publish(&s.mu, s.sock, s.name, s.options.Topic, env)
}

func (s *FullUpdateOut) Close() error {
	if s.factory == nil {
		return nil
	}
	return s.factory.CloseSocket(s.sock)
}

var fullUpdateInVariant = variant{
	Variant: connection.Variant{
		Type:              TypeFullUpdateIn,
		Addresses:         schema.Contract{Required: schema.Sections{"subscriber": schema.String}},
		CreationArguments: schema.Contract{Optional: inCreationArguments},
	},
}

// FullUpdateIn holds whatever full update arrived last.
type FullUpdateIn struct {
	base

	handler svcframe.Handler
	sock    *zmq.Socket

	mu      sync.RWMutex
	current map[string]any
}

func NewFullUpdateIn(name string, model schema.Model, addresses map[string]string) (*FullUpdateIn, error) {
	b, err := newBase(name, model, addresses, fullUpdateInVariant)

	if err != nil {
		return nil, err
	}

	handler, err := b.optionalHandler()

	if err != nil {
		return nil, err
	}

	return &FullUpdateIn{base: b, handler: handler, current: map[string]any{}}, nil
}

func (s *FullUpdateIn) CompatibleTypes() []string {
	return []string{TypeFullUpdateOut}
}

func (s *FullUpdateIn) RuntimeSetup(f *socket.Factory) error {
	prefix, err := codec.TopicPrefix(s.options.Topic)

	if err != nil {
		return err
	}

	sock, err := f.Subscriber(s.addresses["subscriber"], s.options.SocketOptions(prefix))

	if err != nil {
		return err
	}

	s.factory, s.sock = f, sock
	return nil
}

func (s *FullUpdateIn) InboundSocketsAndTriggeredFunctions() []connection.Inbound {
	return []connection.Inbound{{
		Channel:       s.name,
		Socket:        s.sock,
		Decode:        connection.TopicDecoder(s.name, s.options.Topic),
		ArgsValidator: s.model.ValidateArgs,
		StateFunction: s.replace,
		Handler:       s.handler,
	}}
}

func (s *FullUpdateIn) replace(args map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.current = copyState(args)
	s.mu.Unlock()

	log.Log(log.LOGLEVEL_DEBUG, "Full update on", s.name, "with", len(args), "keys")
	return args, nil
}

func (s *FullUpdateIn) Current() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.current)
}

func (s *FullUpdateIn) Send(codec.Envelope) (map[string]any, error) {
	return nil, unsupported(s)
}

func (s *FullUpdateIn) Close() error {
	if s.factory == nil {
		return nil
	}
	return s.factory.CloseSocket(s.sock)
}
