// Package codec serializes values and envelopes with msgpack.
//
// Values msgpack cannot carry natively are wrapped as tagged maps:
//
//	decimal.Decimal  {"__decimal__": true, "as_str": "1.10"}
//	uuid.UUID        {"__uuid__": true, "as_str": "…"}
//	schema.Set       {"__set__": true, "value": [...]}
//
// and unwrapped by tag on decode. Integers decode as int64 (uint64 beyond its range), floats
// as float64, binary as []byte and maps as map[string]any.
package codec

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	"github.com/dermesser/svcframe/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	tagDecimal = "__decimal__"
	tagUUID    = "__uuid__"
	tagSet     = "__set__"

	fieldAsStr = "as_str"
	fieldValue = "value"
)

// Encode serializes v.
func Encode(v any) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := msgpack.NewEncoder(buf)

	if err := enc.Encode(wrap(v)); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes one value from b.
func Decode(b []byte) (any, error) {
	dec := newDecoder(b)
	v, err := dec.DecodeInterface()
	if err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	return unwrap(v)
}

func newDecoder(b []byte) *msgpack.Decoder {
	return msgpack.NewDecoder(bytes.NewReader(b))
}

// decimalString keeps trailing zeros, so that 1.10 stays 1.10 with exponent -2.
func decimalString(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}

func wrap(v any) any {
	switch t := v.(type) {
	case nil, string, bool, []byte:
		return v
	case decimal.Decimal:
		return map[string]any{tagDecimal: true, fieldAsStr: decimalString(t)}
	case *decimal.Decimal:
		if t == nil {
			return nil
		}
		return map[string]any{tagDecimal: true, fieldAsStr: decimalString(*t)}
	case uuid.UUID:
		return map[string]any{tagUUID: true, fieldAsStr: t.String()}
	case schema.Set:
		items := t.Items()
		for i := range items {
			items[i] = wrap(items[i])
		}
		return map[string]any{tagSet: true, fieldValue: items}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = wrap(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = wrap(e)
		}
		return out
	}

	// Typed containers may hold extension values too.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = wrap(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = wrap(iter.Value().Interface())
		}
		return out
	}
	return v
}

func unwrap(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t[tagDecimal]; ok {
			s, ok := t[fieldAsStr].(string)
			if !ok {
				return nil, fmt.Errorf("codec: malformed decimal %v", t)
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("codec: malformed decimal %q: %w", s, err)
			}
			return d, nil
		}
		if _, ok := t[tagUUID]; ok {
			s, ok := t[fieldAsStr].(string)
			if !ok {
				return nil, fmt.Errorf("codec: malformed uuid %v", t)
			}
			u, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("codec: malformed uuid %q: %w", s, err)
			}
			return u, nil
		}
		if _, ok := t[tagSet]; ok {
			items, ok := t[fieldValue].([]any)
			if !ok && t[fieldValue] != nil {
				return nil, fmt.Errorf("codec: malformed set %v", t)
			}
			set := schema.NewSet()
			for _, item := range items {
				u, err := unwrap(item)
				if err != nil {
					return nil, err
				}
				set.Add(u)
			}
			return set, nil
		}
		for k, e := range t {
			u, err := unwrap(e)
			if err != nil {
				return nil, err
			}
			t[k] = u
		}
		return t, nil

	case []any:
		for i, e := range t {
			u, err := unwrap(e)
			if err != nil {
				return nil, err
			}
			t[i] = u
		}
		return t, nil
	}
	return number(v), nil
}

// number widens what msgpack decodes at its wire width.
func number(v any) any {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case float32:
		return float64(n)
	}
	return v
}
