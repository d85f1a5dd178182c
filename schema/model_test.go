package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelKnownSections(t *testing.T) {
	m, err := ParseModel(map[string]any{
		"connection_type":             "requester",
		"optional_creation_arguments": map[string]any{"wait_after_creation_s": 0.2},
		"required_arguments":          map[string]any{"to_echo": "str"},
		"optional_arguments":          map[string]any{"tags": "[str]", "pos": map[string]any{"tuple": []any{"int", "int"}}},
		"required_return_arguments":   map[string]any{"echoed": "str"},
	})
	require.NoError(t, err)

	assert.Equal(t, "requester", m.Type)
	assert.Equal(t, Sections{"to_echo": String}, m.RequiredArguments)
	assert.Equal(t, ListOf{Elem: String}, m.OptionalArguments["tags"])
	assert.Equal(t, Tuple{Int, Int}, m.OptionalArguments["pos"])
	assert.True(t, m.HasReturn())
	assert.Equal(t, 0.2, m.CreationArguments()["wait_after_creation_s"])
	require.NoError(t, m.ValidateConnectionModel())
}

func TestParseModelUnknownSection(t *testing.T) {
	_, err := ParseModel(map[string]any{
		"connection_type":    "requester",
		"required_argumentz": map[string]any{},
	})
	var me *ModelError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "required_argumentz", me.Section)
}

func TestParseSpecVariants(t *testing.T) {
	spec, err := ParseSpec(map[string]any{
		"level": map[string]any{"one_of": []any{"low", "high"}},
		"cb":    map[string]any{"func": 1},
		"inner": map[string]any{"n": "int"},
		"ids":   []any{"uuid"},
	})
	require.NoError(t, err)

	s := spec.(Sections)
	assert.True(t, s["level"].(Set).Contains("low"))
	assert.Equal(t, Func(1), s["cb"])
	assert.Equal(t, Sections{"n": Int}, s["inner"])
	assert.Equal(t, ListOf{Elem: UUID}, s["ids"])

	_, err = ParseSpec("integer")
	assert.Error(t, err)
	_, err = ParseSpec([]any{"int", "str"})
	assert.Error(t, err)
}

func TestModelSectionRules(t *testing.T) {
	conn := Model{Type: "publisher", RequiredStateArguments: Sections{"x": Int}}
	assert.Error(t, conn.ValidateConnectionModel())

	st := Model{Type: "full_update_out", RequiredConnectionArguments: Sections{"x": Int}}
	assert.Error(t, st.ValidateStateModel())

	assert.Error(t, (&Model{}).ValidateStateModel())
}

func TestArgumentSpecsIncludeStateArguments(t *testing.T) {
	m := Model{
		Type:                   "delta_update_out",
		RequiredStateArguments: Sections{"current_num": Int, "is_snapshot": Bool, "state": Dict},
		OptionalArguments:      Sections{"note": String},
	}
	require.NoError(t, m.ValidateArgs(map[string]any{"current_num": 1, "is_snapshot": true, "state": map[string]any{}}))
	assert.Error(t, m.ValidateArgs(map[string]any{"current_num": 1, "state": map[string]any{}}))
}

func TestLoadModels(t *testing.T) {
	doc := []byte(`
echo_out:
  connection_type: requester
  required_arguments:
    to_echo: str
  required_return_arguments:
    echoed: str
`)
	models, err := LoadModels(doc)
	require.NoError(t, err)
	require.Contains(t, models, "echo_out")
	assert.Equal(t, Sections{"echoed": String}, models["echo_out"].RequiredReturnArguments)

	_, err = LoadModels([]byte("bad:\n  colour: red\n"))
	assert.Error(t, err)
}
