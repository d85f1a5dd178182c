// Package state replicates maps between services.
//
// A full update channel sends the complete state on every update; the receiving side keeps
// whatever arrived last. A delta channel sends sequence-numbered deltas on top of a snapshot;
// the receiving side applies them strictly in order and asks the producer for a fresh snapshot
// as soon as it notices a gap.
package state

import (
	"fmt"
	"maps"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/connection"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"
)

// State types as used in a model's state_type.
const (
	TypeFullUpdateOut  = "full_update_out"
	TypeFullUpdateIn   = "full_update_in"
	TypeDeltaUpdateOut = "delta_update_out"
	TypeDeltaUpdateIn  = "delta_update_in"
)

// State is implemented by every state variant.
type State interface {
	Name() string
	Type() string
	CompatibleTypes() []string
	AddressesModel() schema.Contract
	CreationArgumentsModel() schema.Contract
	StateArgumentsModel() schema.Contract
	Model() *schema.Model

	InboundSocketsAndTriggeredFunctions() []connection.Inbound
	RuntimeSetup(f *socket.Factory) error
	Send(env codec.Envelope) (map[string]any, error)
	Close() error
}

// Reader is implemented by the inbound variants.
type Reader interface {
	// Current returns a copy of the replicated value.
	Current() map[string]any
}

var inCreationArguments = schema.Sections{
	"topic":                 schema.String,
	"is_binder":             schema.Bool,
	"wait_after_creation_s": schema.Float,
	"on_new_state":          svcframe.HandlerSpec,
}

type variant struct {
	connection.Variant
	stateArguments schema.Contract
}

type base struct {
	name      string
	model     schema.Model
	addresses map[string]string
	options   connection.CreationOptions
	variant   variant

	factory *socket.Factory
}

func newBase(name string, model schema.Model, addresses map[string]string, v variant) (base, error) {
	if err := model.ValidateStateModel(); err != nil {
		return base{}, fmt.Errorf("state %q: %w", name, err)
	}

	model.RequiredStateArguments = v.stateArguments.Required.Merge(model.RequiredStateArguments)
	model.OptionalStateArguments = v.stateArguments.Optional.Merge(model.OptionalStateArguments)

	opts, err := v.Check(&model, addresses)

	if err != nil {
		return base{}, fmt.Errorf("state %q: %w", name, err)
	}

	return base{name: name, model: model, addresses: addresses, options: opts, variant: v}, nil
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

func (b *base) AddressesModel() schema.Contract {
	return b.variant.Addresses
}

func (b *base) CreationArgumentsModel() schema.Contract {
	return b.variant.CreationArguments
}

func (b *base) StateArgumentsModel() schema.Contract {
	return b.variant.stateArguments
}

// optionalHandler reads the on_new_state creation argument, if given.
func (b *base) optionalHandler() (svcframe.Handler, error) {
	if _, ok := b.model.OptionalCreationArguments["on_new_state"]; !ok {
		return nil, nil
	}
	return connection.HandlerArgument(b.model.OptionalCreationArguments, "on_new_state")
}

// New builds the state variant named by model.Type.
func New(name string, model schema.Model, addresses map[string]string) (State, error) {
	switch model.Type {
	case TypeFullUpdateOut:
		return NewFullUpdateOut(name, model, addresses)
	case TypeFullUpdateIn:
		return NewFullUpdateIn(name, model, addresses)
	case TypeDeltaUpdateOut:
		return NewDeltaUpdateOut(name, model, addresses)
	case TypeDeltaUpdateIn:
		return NewDeltaUpdateIn(name, model, addresses)
	}
	return nil, &schema.ModelError{Section: "state_type", Reason: fmt.Sprintf("unknown state type %q", model.Type)}
}

func copyState(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

func unsupported(s State) error {
	return fmt.Errorf("%s %q: send: %w", s.Type(), s.Name(), connection.ErrUnsupportedOperation)
}
