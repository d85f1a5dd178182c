package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// The section names a Model may declare.
const (
	SectionRequiredCreationArguments   = "required_creation_arguments"
	SectionOptionalCreationArguments   = "optional_creation_arguments"
	SectionRequiredConnectionArguments = "required_connection_arguments"
	SectionOptionalConnectionArguments = "optional_connection_arguments"
	SectionRequiredStateArguments      = "required_state_arguments"
	SectionOptionalStateArguments      = "optional_state_arguments"
	SectionRequiredArguments           = "required_arguments"
	SectionOptionalArguments           = "optional_arguments"
	SectionRequiredReturnArguments     = "required_return_arguments"
	SectionOptionalReturnArguments     = "optional_return_arguments"

	keyConnectionType = "connection_type"
	keyStateType      = "state_type"
)

// Model is the declared contract of one connection or state. Creation argument sections hold
// values (handlers, topics, flags); every other section holds type specifiers.
// A Model is not modified after the connection or state owning it is constructed.
type Model struct {
	// connection_type or state_type, e.g. "replyer" or "delta_update_in"
	Type string

	RequiredCreationArguments map[string]any
	OptionalCreationArguments map[string]any

	RequiredConnectionArguments Sections
	OptionalConnectionArguments Sections
	RequiredStateArguments      Sections
	OptionalStateArguments      Sections

	RequiredArguments Sections
	OptionalArguments Sections

	RequiredReturnArguments Sections
	OptionalReturnArguments Sections
}

// CreationArguments returns the required and optional creation argument values in one map.
func (m *Model) CreationArguments() map[string]any {
	out := make(map[string]any, len(m.RequiredCreationArguments)+len(m.OptionalCreationArguments))
	for k, v := range m.OptionalCreationArguments {
		out[k] = v
	}
	for k, v := range m.RequiredCreationArguments {
		out[k] = v
	}
	return out
}

// ArgumentSpecs returns the payload contract: the message arguments plus the connection or
// state arguments the variant relies on.
func (m *Model) ArgumentSpecs() (required, optional Sections) {
	required = m.RequiredArguments.Merge(m.RequiredConnectionArguments, m.RequiredStateArguments)
	optional = m.OptionalArguments.Merge(m.OptionalConnectionArguments, m.OptionalStateArguments)
	return required, optional
}

// ValidateArgs validates an outbound or inbound payload.
func (m *Model) ValidateArgs(args map[string]any) error {
	req, opt := m.ArgumentSpecs()
	return Validate(args, req, opt)
}

// HasReturn reports whether the model declares any return arguments.
func (m *Model) HasReturn() bool {
	return len(m.RequiredReturnArguments) > 0 || len(m.OptionalReturnArguments) > 0
}

// ValidateReturn validates the return arguments of a handler or of a reply.
func (m *Model) ValidateReturn(ret map[string]any) error {
	return Validate(ret, m.RequiredReturnArguments, m.OptionalReturnArguments)
}

// ValidateConnectionModel checks the sections legal for a connection.
func (m *Model) ValidateConnectionModel() error {
	if m.Type == "" {
		return &ModelError{Section: keyConnectionType, Reason: "missing connection type"}
	}
	if len(m.RequiredStateArguments) > 0 {
		return &ModelError{Section: SectionRequiredStateArguments, Reason: "not allowed in a connection model"}
	}
	if len(m.OptionalStateArguments) > 0 {
		return &ModelError{Section: SectionOptionalStateArguments, Reason: "not allowed in a connection model"}
	}
	return nil
}

// ValidateStateModel checks the sections legal for a state.
func (m *Model) ValidateStateModel() error {
	if m.Type == "" {
		return &ModelError{Section: keyStateType, Reason: "missing state type"}
	}
	if len(m.RequiredConnectionArguments) > 0 {
		return &ModelError{Section: SectionRequiredConnectionArguments, Reason: "not allowed in a state model"}
	}
	if len(m.OptionalConnectionArguments) > 0 {
		return &ModelError{Section: SectionOptionalConnectionArguments, Reason: "not allowed in a state model"}
	}
	return nil
}

// ParseModel builds a Model from a generic mapping such as a decoded YAML document.
// Any key other than the type key and the known section names is a *ModelError.
func ParseModel(raw map[string]any) (Model, error) {
	var m Model

	for key, val := range raw {
		switch key {
		case keyConnectionType, keyStateType:
			t, ok := val.(string)
			if !ok {
				return m, &ModelError{Section: key, Reason: fmt.Sprintf("expected string, got %T", val)}
			}
			m.Type = t

		case SectionRequiredCreationArguments, SectionOptionalCreationArguments:
			values, ok := val.(map[string]any)
			if !ok && val != nil {
				return m, &ModelError{Section: key, Reason: fmt.Sprintf("expected mapping, got %T", val)}
			}
			if key == SectionRequiredCreationArguments {
				m.RequiredCreationArguments = values
			} else {
				m.OptionalCreationArguments = values
			}

		default:
			target := m.sectionByName(key)
			if target == nil {
				return m, &ModelError{Section: key, Reason: "unknown section"}
			}
			sections, err := parseSections(key, val)
			if err != nil {
				return m, err
			}
			*target = sections
		}
	}

	return m, nil
}

func (m *Model) sectionByName(name string) *Sections {
	switch name {
	case SectionRequiredConnectionArguments:
		return &m.RequiredConnectionArguments
	case SectionOptionalConnectionArguments:
		return &m.OptionalConnectionArguments
	case SectionRequiredStateArguments:
		return &m.RequiredStateArguments
	case SectionOptionalStateArguments:
		return &m.OptionalStateArguments
	case SectionRequiredArguments:
		return &m.RequiredArguments
	case SectionOptionalArguments:
		return &m.OptionalArguments
	case SectionRequiredReturnArguments:
		return &m.RequiredReturnArguments
	case SectionOptionalReturnArguments:
		return &m.OptionalReturnArguments
	}
	return nil
}

// LoadModels decodes a YAML (or JSON) document mapping names to model declarations.
func LoadModels(data []byte) (map[string]Model, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ModelError{Reason: "cannot decode model document: " + err.Error()}
	}

	models := make(map[string]Model, len(raw))
	for name, decl := range raw {
		m, err := ParseModel(decl)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		models[name] = m
	}
	return models, nil
}

func parseSections(section string, val any) (Sections, error) {
	if val == nil {
		return Sections{}, nil
	}
	raw, ok := val.(map[string]any)
	if !ok {
		return nil, &ModelError{Section: section, Reason: fmt.Sprintf("expected mapping, got %T", val)}
	}
	out := make(Sections, len(raw))
	for field, decl := range raw {
		spec, err := ParseSpec(decl)
		if err != nil {
			return nil, &ModelError{Section: section, Reason: fmt.Sprintf("field %q: %v", field, err)}
		}
		out[field] = spec
	}
	return out, nil
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// ParseSpec parses a declarative type specifier:
//
//	"str" "int" "float" "bool" "bytes" "decimal" "uuid" "dict" "list" "set" "any"
//	"[T]" or a one-element list    list of T
//	{tuple: [T1, T2]}              fixed-arity tuple
//	{one_of: [v1, v2]}             set of allowed literals
//	{func: n}                      callable with n parameters
//	any other mapping              nested fields
func ParseSpec(decl any) (Spec, error) {
	switch d := decl.(type) {
	case string:
		if strings.HasPrefix(d, "[") && strings.HasSuffix(d, "]") {
			elem, err := ParseSpec(strings.TrimSpace(d[1 : len(d)-1]))
			if err != nil {
				return nil, err
			}
			return ListOf{Elem: elem}, nil
		}
		k, ok := kindsByName[d]
		if !ok {
			return nil, fmt.Errorf("unknown type name %q (known: %s)", d, knownKindNames())
		}
		return k, nil

	case []any:
		if len(d) != 1 {
			return nil, fmt.Errorf("list specifier needs exactly one element type, got %d", len(d))
		}
		elem, err := ParseSpec(d[0])
		if err != nil {
			return nil, err
		}
		return ListOf{Elem: elem}, nil

	case map[string]any:
		if len(d) == 1 {
			if elems, ok := d["tuple"]; ok {
				list, ok := elems.([]any)
				if !ok {
					return nil, fmt.Errorf("tuple specifier needs a list, got %T", elems)
				}
				t := make(Tuple, len(list))
				for i, e := range list {
					spec, err := ParseSpec(e)
					if err != nil {
						return nil, err
					}
					t[i] = spec
				}
				return t, nil
			}
			if values, ok := d["one_of"]; ok {
				list, ok := values.([]any)
				if !ok {
					return nil, fmt.Errorf("one_of specifier needs a list, got %T", values)
				}
				return NewSet(list...), nil
			}
			if n, ok := d["func"]; ok {
				params, ok := n.(int)
				if !ok {
					return nil, fmt.Errorf("func specifier needs a parameter count, got %T", n)
				}
				return Func(params), nil
			}
		}
		out := make(Sections, len(d))
		for field, sub := range d {
			spec, err := ParseSpec(sub)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			out[field] = spec
		}
		return out, nil
	}

	return nil, fmt.Errorf("cannot parse specifier of type %T", decl)
}

func knownKindNames() string {
	names := make([]string, 0, len(kindsByName))
	for n := range kindsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

// Contract is a required/optional pair of sections, as declared by a connection or state
// variant for its addresses and creation arguments, or by a service for its config.
type Contract struct {
	Required Sections
	Optional Sections
}

// Validate checks values against the contract.
func (c Contract) Validate(values map[string]any) error {
	return Validate(values, c.Required, c.Optional)
}

// ValidateStrings is Validate for string-valued maps such as addresses.
func (c Contract) ValidateStrings(values map[string]string) error {
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v
	}
	return c.Validate(m)
}
