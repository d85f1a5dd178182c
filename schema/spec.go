package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// A Spec is a type specifier. It is one of:
//
//	Kind       nominal type check
//	Sections   nested mapping of specifiers
//	ListOf     homogeneous list
//	Tuple      fixed-arity sequence
//	Set        set of allowed literal values
//	Signature  callable with a declared arity
type Spec interface {
	specName() string
}

// Kind is a nominal type.
type Kind int

const (
	Any Kind = iota
	String
	Int
	Float
	Bool
	Bytes
	Decimal
	UUID
	Dict
	List
	SetKind
)

var kindNames = map[Kind]string{
	Any:     "any",
	String:  "str",
	Int:     "int",
	Float:   "float",
	Bool:    "bool",
	Bytes:   "bytes",
	Decimal: "decimal",
	UUID:    "uuid",
	Dict:    "dict",
	List:    "list",
	SetKind: "set",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) specName() string { return k.String() }

// Matches reports whether v is an instance of k.
func (k Kind) Matches(v any) bool {
	switch k {
	case Any:
		return true
	case String:
		_, ok := v.(string)
		return ok
	case Int:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case Float:
		switch v.(type) {
		case float32, float64:
			return true
		}
		return false
	case Bool:
		_, ok := v.(bool)
		return ok
	case Bytes:
		_, ok := v.([]byte)
		return ok
	case Decimal:
		_, ok := v.(decimal.Decimal)
		return ok
	case UUID:
		_, ok := v.(uuid.UUID)
		return ok
	case Dict:
		_, ok := v.(map[string]any)
		return ok
	case List:
		if v == nil {
			return false
		}
		if _, ok := v.([]byte); ok {
			return false
		}
		return reflect.TypeOf(v).Kind() == reflect.Slice
	case SetKind:
		_, ok := v.(Set)
		return ok
	}
	return false
}

// Sections maps a field name to its type specifier.
type Sections map[string]Spec

func (s Sections) specName() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "{" + strings.Join(keys, ", ") + "}"
}

// Merge returns a new Sections holding the fields of s and every other; later fields win.
func (s Sections) Merge(others ...Sections) Sections {
	out := make(Sections, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// ListOf is the homogeneous list specifier [T].
type ListOf struct {
	Elem Spec
}

func (l ListOf) specName() string { return "[" + l.Elem.specName() + "]" }

// Tuple is the fixed-arity specifier (T1, ..., Tn).
type Tuple []Spec

func (t Tuple) specName() string {
	names := make([]string, len(t))
	for i, e := range t {
		names[i] = e.specName()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Signature declares the shape of a callable: the number of parameters and how many of them have defaults.
type Signature struct {
	Params   int
	Defaults int
}

func (s Signature) specName() string {
	return fmt.Sprintf("func/%d(%d defaults)", s.Params, s.Defaults)
}

// Func is a Signature without defaulted parameters.
func Func(params int) Signature {
	return Signature{Params: params}
}

// Callable values carry their own signature; a callable-typed field is validated by comparing it.
type Callable interface {
	Signature() Signature
}
