package schema

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/dermesser/svcframe/log"
)

type mode int

const (
	requiredMode mode = iota
	optionalMode
)

// Validate checks value against the required and optional specifiers.
//
// value is a mapping or a Set. Every required key (or member) must be present and valid; every
// remaining key must be declared in optional. Nested required mappings only check the keys
// they declare, nested optional mappings reject any undeclared key. Validation stops at the
// first violation, which is returned as a *SchemaError.
func Validate(value any, required, optional Spec) error {
	switch v := value.(type) {
	case map[string]any:
		req, err := sectionsOrEmpty(required)
		if err != nil {
			return err
		}
		opt, err := sectionsOrEmpty(optional)
		if err != nil {
			return err
		}
		if err := check("", v, req, requiredMode); err != nil {
			return err
		}
		rest := make(map[string]any, len(v))
		for k, val := range v {
			if _, ok := req[k]; !ok {
				rest[k] = val
			}
		}
		return check("", rest, opt, optionalMode)

	case Set:
		req, err := setOrEmpty(required)
		if err != nil {
			return err
		}
		opt, err := setOrEmpty(optional)
		if err != nil {
			return err
		}
		if err := check("", v, req, requiredMode); err != nil {
			return err
		}
		rest := make(Set, len(v))
		for k := range v {
			if !req.Contains(k) {
				rest[k] = struct{}{}
			}
		}
		return check("", rest, opt, optionalMode)
	}

	return fail("", value, fmt.Sprintf("cannot validate unsupported type %T", value))
}

func sectionsOrEmpty(s Spec) (Sections, error) {
	switch t := s.(type) {
	case nil:
		return Sections{}, nil
	case Sections:
		return t, nil
	}
	return nil, &SchemaError{Reason: fmt.Sprintf("mapping validated against non-mapping specifier %s", s.specName())}
}

func setOrEmpty(s Spec) (Set, error) {
	switch t := s.(type) {
	case nil:
		return Set{}, nil
	case Set:
		return t, nil
	}
	return nil, &SchemaError{Reason: fmt.Sprintf("set validated against non-set specifier %s", s.specName())}
}

func fail(path string, value any, reason string) error {
	err := &SchemaError{Path: path, Value: value, Reason: reason}
	if log.IsLoggingEnabled(log.LOGLEVEL_DEBUG) {
		log.Log(log.LOGLEVEL_DEBUG, "validation failed:", err.Error())
	}
	return err
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// sliceElems returns the elements of any non-byte slice.
func sliceElems(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	if v == nil {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func check(path string, value any, spec Spec, m mode) error {
	switch s := spec.(type) {
	case nil:
		return nil

	case Sections:
		mapping, ok := value.(map[string]any)
		if !ok {
			return fail(path, value, "expected mapping "+s.specName())
		}
		if m == requiredMode {
			for key, sub := range s {
				v, present := mapping[key]
				if !present {
					return fail(join(path, key), nil, "missing required key")
				}
				if err := check(join(path, key), v, sub, m); err != nil {
					return err
				}
			}
			return nil
		}
		for key, v := range mapping {
			sub, declared := s[key]
			if !declared {
				return fail(join(path, key), v, "key not declared in optional arguments")
			}
			if err := check(join(path, key), v, sub, m); err != nil {
				return err
			}
		}
		return nil

	case ListOf:
		elems, ok := sliceElems(value)
		if !ok {
			return fail(path, value, "expected list "+s.specName())
		}
		for i, e := range elems {
			if err := check(index(path, i), e, s.Elem, m); err != nil {
				return err
			}
		}
		return nil

	case Tuple:
		elems, ok := sliceElems(value)
		if !ok {
			return fail(path, value, "expected tuple "+s.specName())
		}
		if len(elems) != len(s) {
			return fail(path, value, fmt.Sprintf("tuple has %d elements, specifier %s has %d", len(elems), s.specName(), len(s)))
		}
		for i, e := range elems {
			if err := check(index(path, i), e, s[i], m); err != nil {
				return err
			}
		}
		return nil

	case Set:
		given, isSet := value.(Set)
		if !isSet {
			if !s.Contains(value) {
				return fail(path, value, "value not in allowed set "+s.specName())
			}
			return nil
		}
		if m == requiredMode {
			for item := range s {
				if !given.Contains(item) {
					return fail(path, value, fmt.Sprintf("required item %v missing from set", item))
				}
			}
			return nil
		}
		for item := range given {
			if !s.Contains(item) {
				return fail(path, value, fmt.Sprintf("item %v not in optional set %s", item, s.specName()))
			}
		}
		return nil

	case Signature:
		c, ok := value.(Callable)
		if !ok {
			return fail(path, value, "expected callable "+s.specName())
		}
		if got := c.Signature(); got != s {
			return fail(path, value, fmt.Sprintf("callable signature %s does not match %s", got.specName(), s.specName()))
		}
		return nil

	case Kind:
		if !s.Matches(value) {
			return fail(path, value, fmt.Sprintf("value of type %T is not of type %s", value, s))
		}
		return nil
	}

	return fail(path, value, fmt.Sprintf("unknown specifier %T", spec))
}
