package connection

import (
	"fmt"

	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"
)

// ExternalFunc calls out of the framework, e.g. to a third-party HTTP API.
type ExternalFunc func(args map[string]any) (map[string]any, error)

func (ExternalFunc) Signature() schema.Signature {
	return schema.Func(1)
}

var externalVariant = Variant{
	Type: TypeExternalRequest,
	CreationArguments: schema.Contract{
		Required: schema.Sections{"func_to_call": schema.Func(1)},
	},
}

// ExternalRequester is an outbound connection backed by a function instead of a socket. Its
// result is validated like a requester's reply.
type ExternalRequester struct {
	base

	call ExternalFunc
}

func NewExternalRequester(name string, model schema.Model, addresses map[string]string) (*ExternalRequester, error) {
	b, err := newBase(name, model, addresses, externalVariant)

	if err != nil {
		return nil, err
	}

	call, ok := b.model.RequiredCreationArguments["func_to_call"].(ExternalFunc)

	if !ok || call == nil {
		return nil, fmt.Errorf("external request %q: func_to_call is not a connection.ExternalFunc", name)
	}

	return &ExternalRequester{base: b, call: call}, nil
}

func (e *ExternalRequester) CompatibleTypes() []string {
	return nil
}

func (e *ExternalRequester) AddressesModel() schema.Contract {
	return externalVariant.Addresses
}

func (e *ExternalRequester) CreationArgumentsModel() schema.Contract {
	return externalVariant.CreationArguments
}

func (e *ExternalRequester) InboundSocketsAndTriggeredFunctions() []Inbound {
	return nil
}

func (e *ExternalRequester) RuntimeSetup(*socket.Factory) error {
	return nil
}

func (e *ExternalRequester) Send(env codec.Envelope) (map[string]any, error) {
	ret, err := e.call(env.Args)

	if err != nil {
		return nil, fmt.Errorf("external request %q: %w", e.name, err)
	}
	if ret == nil {
		ret = map[string]any{}
	}
	return ret, nil
}

func (e *ExternalRequester) Close() error {
	return nil
}
