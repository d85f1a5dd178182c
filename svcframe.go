package svcframe

import "github.com/dermesser/svcframe/schema"

// Kind selects the table ToSend looks a name up in.
type Kind string

const (
	KindConnection Kind = "connection"
	KindState      Kind = "state"
)

// Config is the validated service configuration.
type Config map[string]any

// ToSend sends args over the named outbound connection or state and returns the validated
// return arguments, if the target produces any.
type ToSend func(kind Kind, name string, args map[string]any) (map[string]any, error)

// States gives handlers read access to the values held by inbound states.
type States interface {
	// Current returns a copy of the named in-state's value.
	Current(name string) (map[string]any, bool)
}

// Handler is invoked for every validated inbound message. The returned map is the reply of a
// replyer and is ignored for subscribers.
type Handler func(args map[string]any, toSend ToSend, states States, config Config) (map[string]any, error)

func (Handler) Signature() schema.Signature {
	return schema.Func(4)
}

// HandlerSpec is the type specifier of a handler-valued creation argument.
var HandlerSpec = schema.Func(4)

// MainFunc is the entry point of a service run in main mode.
type MainFunc func(toSend ToSend, config Config) error

func (MainFunc) Signature() schema.Signature {
	return schema.Func(2)
}

// HookFunc runs at startup (init) or on shutdown with the full runtime at hand.
type HookFunc func(toSend ToSend, states States, config Config) error

func (HookFunc) Signature() schema.Signature {
	return schema.Func(3)
}
