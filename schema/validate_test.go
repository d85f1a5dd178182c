package schema

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFunc Signature

func (f fakeFunc) Signature() Signature { return Signature(f) }

func TestValidateRequiredAndOptionalKeys(t *testing.T) {
	req := Sections{"name": String, "count": Int}
	opt := Sections{"note": String}

	require.NoError(t, Validate(map[string]any{"name": "a", "count": int64(3)}, req, opt))
	require.NoError(t, Validate(map[string]any{"name": "a", "count": 3, "note": "x"}, req, opt))

	err := Validate(map[string]any{"name": "a"}, req, opt)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "count", se.Path)

	err = Validate(map[string]any{"name": "a", "count": 1, "extra": true}, req, opt)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "extra", se.Path)
}

func TestValidateNominalTypes(t *testing.T) {
	cases := []struct {
		kind  Kind
		good  any
		wrong any
	}{
		{String, "s", 1},
		{Int, uint8(2), 2.5},
		{Float, 2.5, 2},
		{Bool, true, "true"},
		{Bytes, []byte("x"), "x"},
		{Decimal, decimal.RequireFromString("1.10"), 1.1},
		{UUID, uuid.New(), "not-a-uuid"},
		{Dict, map[string]any{}, []any{}},
		{List, []any{1}, []byte("x")},
		{SetKind, NewSet(1), []any{1}},
	}
	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			assert.NoError(t, Validate(map[string]any{"f": c.good}, Sections{"f": c.kind}, nil))
			assert.Error(t, Validate(map[string]any{"f": c.wrong}, Sections{"f": c.kind}, nil))
		})
	}
	assert.NoError(t, Validate(map[string]any{"f": nil}, Sections{"f": Any}, nil))
}

func TestValidateNestedMappings(t *testing.T) {
	req := Sections{"user": Sections{"id": Int}}

	// nested required mappings tolerate undeclared keys
	require.NoError(t, Validate(map[string]any{"user": map[string]any{"id": 1, "other": "x"}}, req, nil))

	err := Validate(map[string]any{"user": map[string]any{"name": "x"}}, req, nil)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "user.id", se.Path)

	// nested optional mappings do not
	opt := Sections{"meta": Sections{"tag": String}}
	require.NoError(t, Validate(map[string]any{"meta": map[string]any{"tag": "t"}}, nil, opt))
	require.ErrorAs(t, Validate(map[string]any{"meta": map[string]any{"tag": "t", "x": 1}}, nil, opt), &se)
	assert.Equal(t, "meta.x", se.Path)
}

func TestValidateLists(t *testing.T) {
	req := Sections{"ids": ListOf{Elem: Int}}

	require.NoError(t, Validate(map[string]any{"ids": []any{int64(1), int64(2)}}, req, nil))
	require.NoError(t, Validate(map[string]any{"ids": []int{1, 2}}, req, nil))
	require.NoError(t, Validate(map[string]any{"ids": []any{}}, req, nil))

	err := Validate(map[string]any{"ids": []any{1, "two"}}, req, nil)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ids[1]", se.Path)

	assert.Error(t, Validate(map[string]any{"ids": 1}, req, nil))
}

func TestValidateTuples(t *testing.T) {
	spec := Sections{"point": Tuple{Int, Int, String}}

	require.NoError(t, Validate(map[string]any{"point": []any{1, 2, "z"}}, spec, nil))
	assert.Error(t, Validate(map[string]any{"point": []any{1, 2}}, spec, nil))
	assert.Error(t, Validate(map[string]any{"point": []any{1, 2, "z", 4}}, spec, nil))
	assert.Error(t, Validate(map[string]any{"point": []any{1, "2", "z"}}, spec, nil))

	assert.Error(t, Validate(map[string]any{"point": []any{1}}, nil, spec))
}

func TestValidateSets(t *testing.T) {
	// required set members must be present in the given set
	req := Sections{"flags": NewSet("a", "b")}
	require.NoError(t, Validate(map[string]any{"flags": NewSet("a", "b", "c")}, req, nil))
	assert.Error(t, Validate(map[string]any{"flags": NewSet("a")}, req, nil))

	// optional set members restrict what may be given
	opt := Sections{"flags": NewSet("a", "b")}
	require.NoError(t, Validate(map[string]any{"flags": NewSet("a")}, nil, opt))
	assert.Error(t, Validate(map[string]any{"flags": NewSet("a", "z")}, nil, opt))

	// scalars are checked for membership
	level := Sections{"level": NewSet("low", "high")}
	require.NoError(t, Validate(map[string]any{"level": "low"}, level, nil))
	assert.Error(t, Validate(map[string]any{"level": "mid"}, level, nil))

	// integer members match regardless of width
	require.NoError(t, Validate(map[string]any{"n": int64(2)}, Sections{"n": NewSet(1, 2)}, nil))
}

func TestValidateTopLevelSet(t *testing.T) {
	require.NoError(t, Validate(NewSet("a", "b"), NewSet("a"), NewSet("b")))
	assert.Error(t, Validate(NewSet("b"), NewSet("a"), NewSet("b")))
	assert.Error(t, Validate(NewSet("a", "c"), NewSet("a"), NewSet("b")))
}

func TestValidateCallables(t *testing.T) {
	spec := Sections{"on_new_request": Func(4)}

	require.NoError(t, Validate(map[string]any{"on_new_request": fakeFunc{Params: 4}}, spec, nil))
	assert.Error(t, Validate(map[string]any{"on_new_request": fakeFunc{Params: 3}}, spec, nil))
	assert.Error(t, Validate(map[string]any{"on_new_request": fakeFunc{Params: 4, Defaults: 1}}, spec, nil))
	assert.Error(t, Validate(map[string]any{"on_new_request": "handler"}, spec, nil))
}

func TestValidateUnsupportedInput(t *testing.T) {
	assert.Error(t, Validate([]any{1}, nil, nil))
	assert.Error(t, Validate(map[string]any{}, NewSet(1), nil))
}
