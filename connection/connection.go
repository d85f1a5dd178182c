// Package connection implements the message channels of a service: request/reply and
// publish/subscribe, each wrapping one socket and a validated schema.Model.
package connection

import (
	"errors"
	"fmt"

	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"
)

// Connection types as used in a model's connection_type.
const (
	TypeRequester       = "requester"
	TypeReplyer         = "replyer"
	TypePublisher       = "publisher"
	TypeSubscriber      = "subscriber"
	TypeExternalRequest = "external_request"
)

// ErrUnsupportedOperation is returned by Send on variants without an outbound path.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ErrForeignTopic marks a frame published under another topic than the one subscribed to.
var ErrForeignTopic = errors.New("frame for foreign topic")

// Direction is the side of a service a channel sits on.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Connection is implemented by every connection variant.
type Connection interface {
	Name() string
	Type() string
	CompatibleTypes() []string
	AddressesModel() schema.Contract
	CreationArgumentsModel() schema.Contract
	Model() *schema.Model

	// InboundSocketsAndTriggeredFunctions lists the sockets the event loop must poll. Only
	// valid after RuntimeSetup.
	InboundSocketsAndTriggeredFunctions() []Inbound
	// RuntimeSetup creates the sockets.
	RuntimeSetup(f *socket.Factory) error
	// Send transmits env and returns the reply's return arguments, if any.
	Send(env codec.Envelope) (map[string]any, error)
	Close() error
}

// RemoteError is the failure reported by the replying side of a request.
type RemoteError struct {
	Connection string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("connection %s: remote failure: %s", e.Connection, e.Message)
}

func unsupported(c Connection) error {
	return fmt.Errorf("%s %q: send: %w", c.Type(), c.Name(), ErrUnsupportedOperation)
}

// base holds what every variant shares after construction-time validation.
type base struct {
	name      string
	model     schema.Model
	addresses map[string]string
	options   CreationOptions

	factory *socket.Factory
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Type() string {
	return b.model.Type
}

func (b *base) Model() *schema.Model {
	return &b.model
}

// Variant describes the static contract of a connection or state variant.
type Variant struct {
	Type              string
	Addresses         schema.Contract
	CreationArguments schema.Contract
}

// Check validates model, addresses and creation arguments against the variant and decodes
// the creation options.
func (v Variant) Check(model *schema.Model, addresses map[string]string) (CreationOptions, error) {
	if model.Type != v.Type {
		return CreationOptions{}, &schema.ModelError{Reason: fmt.Sprintf("model type %q used for %s", model.Type, v.Type)}
	}

	if err := v.Addresses.ValidateStrings(addresses); err != nil {
		return CreationOptions{}, fmt.Errorf("%s addresses: %w", v.Type, err)
	}

	if err := schema.Validate(model.RequiredCreationArguments, v.CreationArguments.Required, nil); err != nil {
		return CreationOptions{}, fmt.Errorf("%s required creation arguments: %w", v.Type, err)
	}
	if err := schema.Validate(model.OptionalCreationArguments, nil, v.CreationArguments.Optional); err != nil {
		return CreationOptions{}, fmt.Errorf("%s optional creation arguments: %w", v.Type, err)
	}

	return DecodeCreationOptions(model.CreationArguments())
}

func newBase(name string, model schema.Model, addresses map[string]string, v Variant) (base, error) {
	if err := model.ValidateConnectionModel(); err != nil {
		return base{}, err
	}
	if model.RequiredCreationArguments == nil {
		model.RequiredCreationArguments = map[string]any{}
	}
	if model.OptionalCreationArguments == nil {
		model.OptionalCreationArguments = map[string]any{}
	}

	opts, err := v.Check(&model, addresses)

	if err != nil {
		return base{}, fmt.Errorf("connection %q: %w", name, err)
	}

	return base{name: name, model: model, addresses: addresses, options: opts}, nil
}

// New builds the connection variant named by model.Type.
func New(name string, model schema.Model, addresses map[string]string) (Connection, error) {
	switch model.Type {
	case TypeRequester:
		return NewRequester(name, model, addresses)
	case TypeReplyer:
		return NewReplyer(name, model, addresses)
	case TypePublisher:
		return NewPublisher(name, model, addresses)
	case TypeSubscriber:
		return NewSubscriber(name, model, addresses)
	case TypeExternalRequest:
		return NewExternalRequester(name, model, addresses)
	}
	return nil, &schema.ModelError{Section: "connection_type", Reason: fmt.Sprintf("unknown connection type %q", model.Type)}
}
