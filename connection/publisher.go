package connection

import (
	"sync"

	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"

	zmq "github.com/pebbe/zmq4"
)

// PublisherCreationArguments are the optional creation arguments of publishing channels.
var PublisherCreationArguments = schema.Sections{
	"topic":                 schema.String,
	"is_x_pub":              schema.Bool,
	"wait_after_creation_s": schema.Float,
}

var publisherVariant = Variant{
	Type:              TypePublisher,
	Addresses:         schema.Contract{Required: schema.Sections{"publisher": schema.String}},
	CreationArguments: schema.Contract{Optional: PublisherCreationArguments},
}

// Publisher broadcasts messages to any number of subscribers. No reply is expected.
type Publisher struct {
	base

	mu   sync.Mutex
	sock *zmq.Socket
}

func NewPublisher(name string, model schema.Model, addresses map[string]string) (*Publisher, error) {
	b, err := newBase(name, model, addresses, publisherVariant)

	if err != nil {
		return nil, err
	}

	return &Publisher{base: b}, nil
}

func (p *Publisher) CompatibleTypes() []string {
	return []string{TypeSubscriber}
}

func (p *Publisher) AddressesModel() schema.Contract {
	return publisherVariant.Addresses
}

func (p *Publisher) CreationArgumentsModel() schema.Contract {
	return publisherVariant.CreationArguments
}

func (p *Publisher) InboundSocketsAndTriggeredFunctions() []Inbound {
	return nil
}

func (p *Publisher) RuntimeSetup(f *socket.Factory) error {
	sock, err := f.Publisher(p.addresses["publisher"], p.options.SocketOptions(nil))

	if err != nil {
		return err
	}

	p.factory, p.sock = f, sock
	return nil
}

func (p *Publisher) Topic() string {
	return p.options.Topic
}

func (p *Publisher) Send(env codec.Envelope) (map[string]any, error) {
	return nil, Publish(&p.mu, p.sock, p.name, p.options.Topic, env)
}

func (p *Publisher) Close() error {
	if p.factory == nil {
		return nil
	}
	return p.factory.CloseSocket(p.sock)
}

// Publish frames env with topic and sends it on a PUB socket guarded by mu.
func Publish(mu *sync.Mutex, sock *zmq.Socket, channel, topic string, env codec.Envelope) error {
	frame, err := codec.EncodeFrame(topic, env)

	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if sock == nil {
		return &socket.TransportError{Op: "send", Address: channel, Err: zmq.ENOTSOCK}
	}

	_, err = sock.SendBytes(frame, 0)

	if err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Could not publish on", channel, ":", err.Error())
		return &socket.TransportError{Op: "send", Address: channel, Err: err}
	}

	if log.IsLoggingEnabled(log.LOGLEVEL_DEBUG) {
		log.Log(log.LOGLEVEL_DEBUG, "Published", len(frame), "bytes on", channel, "topic", topic)
	}
	return nil
}
