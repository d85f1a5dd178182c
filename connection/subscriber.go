package connection

import (
	"fmt"
	"sync"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/queue"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"

	zmq "github.com/pebbe/zmq4"
)

var subscriberVariant = Variant{
	Type:      TypeSubscriber,
	Addresses: schema.Contract{Required: schema.Sections{"subscriber": schema.String}},
	CreationArguments: schema.Contract{
		Required: schema.Sections{"on_new_message": svcframe.HandlerSpec},
		Optional: schema.Sections{
			"topic":                 schema.String,
			"is_binder":             schema.Bool,
			"wait_after_creation_s": schema.Float,
			"message_buffer":        schema.Int,
		},
	},
}

// Subscriber receives publications and hands them to its on_new_message handler. With a
// message_buffer, the last that many validated messages are also kept for Drain.
type Subscriber struct {
	base

	handler svcframe.Handler
	sock    *zmq.Socket

	mu     sync.Mutex
	buffer *queue.Queue[map[string]any]
}

func NewSubscriber(name string, model schema.Model, addresses map[string]string) (*Subscriber, error) {
	b, err := newBase(name, model, addresses, subscriberVariant)

	if err != nil {
		return nil, err
	}

	handler, err := HandlerArgument(b.model.RequiredCreationArguments, "on_new_message")

	if err != nil {
		return nil, fmt.Errorf("subscriber %q: %w", name, err)
	}

	s := &Subscriber{base: b, handler: handler}

	if b.options.MessageBuffer > 0 {
		s.buffer = queue.NewQueue[map[string]any](b.options.MessageBuffer)
	}

	return s, nil
}

func (s *Subscriber) CompatibleTypes() []string {
	return []string{TypePublisher}
}

func (s *Subscriber) AddressesModel() schema.Contract {
	return subscriberVariant.Addresses
}

func (s *Subscriber) CreationArgumentsModel() schema.Contract {
	return subscriberVariant.CreationArguments
}

func (s *Subscriber) RuntimeSetup(f *socket.Factory) error {
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

func (s *Subscriber) InboundSocketsAndTriggeredFunctions() []Inbound {
	return []Inbound{{
		Channel:       s.name,
		Socket:        s.sock,
		Decode:        TopicDecoder(s.name, s.options.Topic),
		ArgsValidator: s.model.ValidateArgs,
		StateFunction: s.accumulate,
		Handler:       s.handler,
	}}
}

func (s *Subscriber) accumulate(args map[string]any) (map[string]any, error) {
	if s.buffer == nil {
		return args, nil
	}

	s.mu.Lock()
	evicted := s.buffer.PushEvict(args)
	s.mu.Unlock()

	if evicted {
		log.Logf(log.LOGLEVEL_DEBUG, "Message buffer of %s full at %d, dropped oldest message", s.name, s.buffer.Cap())
	}
	return args, nil
}

// Drain returns and clears the buffered messages, oldest first. It returns nil if the
// subscriber was created without a message_buffer.
func (s *Subscriber) Drain() []map[string]any {
	if s.buffer == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Drain()
}

func (s *Subscriber) Send(codec.Envelope) (map[string]any, error) {
	return nil, unsupported(s)
}

func (s *Subscriber) Close() error {
	if s.factory == nil {
		return nil
	}
	return s.factory.CloseSocket(s.sock)
}

// TopicDecoder decodes a published frame and rejects frames under a different topic. The
// socket filters by prefix already; this catches topics that merely share that prefix.
func TopicDecoder(channel, topic string) func([]byte) (codec.Envelope, error) {
	return func(frame []byte) (codec.Envelope, error) {
		got, env, err := codec.DecodeFrame(frame)

		if err != nil {
			return env, err
		}
		if topic != "" && got != topic {
			return env, fmt.Errorf("%s: %w: topic %q", channel, ErrForeignTopic, got)
		}
		return env, nil
	}
}
