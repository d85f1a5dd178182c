package schema

import "fmt"

// SchemaError reports a value that does not satisfy its type specifier.
type SchemaError struct {
	// Dotted location of the offending value, e.g. "state.items[2]". Empty for the top level.
	Path   string
	Value  any
	Reason string
}

func (e *SchemaError) Error() string {
	where := e.Path
	if where == "" {
		where = "<root>"
	}
	return fmt.Sprintf("schema: %s: %s (value %#v)", where, e.Reason, e.Value)
}

// ModelError reports a malformed Model declaration.
type ModelError struct {
	Section string
	Reason  string
}

func (e *ModelError) Error() string {
	if e.Section == "" {
		return "model: " + e.Reason
	}
	return fmt.Sprintf("model: section %q: %s", e.Section, e.Reason)
}
