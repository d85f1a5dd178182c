package codec

import (
	"testing"

	"github.com/dermesser/svcframe/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripExtensionTypes(t *testing.T) {
	id := uuid.New()
	in := map[string]any{
		"price": decimal.RequireFromString("12345678901234567890.000000000001"),
		"id":    id,
		"tags":  schema.NewSet("a", "b", int64(3)),
		"nested": map[string]any{
			"ids": []any{id, "plain"},
		},
	}

	b, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.True(t, in["price"].(decimal.Decimal).Equal(m["price"].(decimal.Decimal)))
	assert.Equal(t, "12345678901234567890.000000000001", m["price"].(decimal.Decimal).String())
	assert.Equal(t, id, m["id"])
	assert.True(t, in["tags"].(schema.Set).Equal(m["tags"].(schema.Set)))
	assert.Equal(t, []any{id, "plain"}, m["nested"].(map[string]any)["ids"])
}

func TestPlainValuesPassThrough(t *testing.T) {
	in := map[string]any{"s": "x", "n": int64(-4), "f": 1.5, "b": true, "raw": []byte{1, 2}, "nil": nil}

	b, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)

	assert.Equal(t, in, out)
}

func TestDecimalKeepsExponent(t *testing.T) {
	for _, s := range []string{"1.10", "0.00", "-12.3400", "100", "0.000000000000000000001"} {
		in := decimal.RequireFromString(s)

		b, err := Encode(in)
		require.NoError(t, err)
		out, err := Decode(b)
		require.NoError(t, err)

		d := out.(decimal.Decimal)
		assert.Equal(t, in.Exponent(), d.Exponent(), s)
		assert.True(t, in.Equal(d), s)
	}

	b, err := Encode(decimal.RequireFromString("1.10"))
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "1.10", out.(decimal.Decimal).StringFixed(2))
	assert.Equal(t, int32(-2), out.(decimal.Decimal).Exponent())
}

func TestNestedBytesAndIntegerWidths(t *testing.T) {
	env := Envelope{Args: map[string]any{
		"blobs":  []any{[]byte{0xff}, []byte{}},
		"small":  7,
		"medium": 200,
		"large":  uint64(1) << 40,
		"neg":    int32(-70000),
		"f32":    float32(0.5),
	}}

	frame, err := EncodeFrame("t", env)
	require.NoError(t, err)
	_, got, err := DecodeFrame(frame)
	require.NoError(t, err)

	assert.Equal(t, []any{[]byte{0xff}, []byte{}}, got.Args["blobs"])
	assert.Equal(t, int64(7), got.Args["small"])
	assert.Equal(t, int64(200), got.Args["medium"])
	assert.Equal(t, int64(1)<<40, got.Args["large"])
	assert.Equal(t, int64(-70000), got.Args["neg"])
	assert.Equal(t, 0.5, got.Args["f32"])
	assert.NoError(t, schema.Validate(map[string]any{"blobs": got.Args["blobs"]},
		schema.Sections{"blobs": schema.ListOf{Elem: schema.Bytes}}, nil))
}

func TestTypedContainersAreWrapped(t *testing.T) {
	b, err := Encode(map[string]any{"ids": []uuid.UUID{uuid.Nil}})
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, []any{uuid.Nil}, out.(map[string]any)["ids"])
}

func TestMalformedExtension(t *testing.T) {
	b, err := Encode(map[string]any{"__decimal__": true, "as_str": "not a number"})
	require.NoError(t, err)
	_, err = Decode(b)
	assert.Error(t, err)
}

func TestEnvelopeFrameWithTopic(t *testing.T) {
	env := Envelope{Args: map[string]any{"a": int64(1)}, WorkflowID: "W_1"}

	frame, err := EncodeFrame("prices", env)
	require.NoError(t, err)
	assert.True(t, HasTopic(frame, "prices"))
	assert.False(t, HasTopic(frame, "orders"))

	topic, got, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, "prices", topic)
	assert.Equal(t, env, got)
}

func TestEnvelopeFrameWithoutTopic(t *testing.T) {
	env := Envelope{ReturnArgs: map[string]any{"echoed": "hi"}}

	frame, err := EncodeFrame("", env)
	require.NoError(t, err)

	topic, got, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, "", topic)
	assert.Equal(t, env, got)

	direct, err := DecodeEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, env, direct)
}

func TestDecodeEnvelopeRejectsNonMap(t *testing.T) {
	b, err := Encode([]any{1, 2})
	require.NoError(t, err)
	_, err = DecodeEnvelope(b)
	assert.Error(t, err)
}
