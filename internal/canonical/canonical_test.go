package canonical

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"max int64", int64(math.MaxInt64), "9223372036854775807"},
		{"uint8", uint8(255), "255"},
		{"integral float", 3.0, "3"},
		{"json number", json.Number("12"), "12"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{1, "a", nil, false}, `[1,"a",null,false]`},
		{"object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_SortedNestedKeys(t *testing.T) {
	got, err := Marshal(map[string]any{
		"z": map[string]any{"b": 1, "a": 2},
		"a": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(got))
}

func TestMarshal_UTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before E000.
	got, err := Marshal(map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	got, err := Marshal("<a href=\"x\">&</a>")
	require.NoError(t, err)
	assert.Equal(t, `"<a href=\"x\">&</a>"`, string(got))
}

func TestMarshal_StringEscaping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"line\nbreak", `"line\nbreak"`},
		{"tab\there", `"tab\there"`},
		{`back\slash`, `"back\\slash"`},
		{"\x01", `"\u0001"`},
		{"\u2028\u2029", "\"\u2028\u2029\""},
	}

	for _, tt := range tests {
		got, err := Marshal(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, string(got))
	}
}

func TestMarshal_NFCNormalization(t *testing.T) {
	// "e" followed by a combining acute accent normalises to U+00E9.
	got, err := Marshal(map[string]any{"cafe\u0301": "cafe\u0301"})
	require.NoError(t, err)
	assert.Equal(t, "{\"caf\u00e9\":\"caf\u00e9\"}", string(got))
}

func TestMarshal_RejectsFractions(t *testing.T) {
	for _, v := range []any{1.5, float32(0.25), math.NaN(), math.Inf(1), json.Number("1.5"), []any{0.1}} {
		_, err := Marshal(v)
		assert.Error(t, err, "%v", v)
	}
}

func TestMarshal_FallsBackToJSON(t *testing.T) {
	type item struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	got, err := Marshal(map[string]any{
		"items": []item{{Name: "b", Count: 2}},
		"tags":  []string{"x", "y"},
		"ids":   map[string]int{"z": 1, "a": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ids":{"a":2,"z":1},"items":[{"count":2,"name":"b"}],"tags":["x","y"]}`, string(got))
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestMarshal_Idempotent(t *testing.T) {
	v := map[string]any{"b": []any{1, map[string]any{"y": "z", "x": nil}}, "a": "s"}

	first, err := Marshal(v)
	require.NoError(t, err)

	var decoded any
	require.NoError(t, json.Unmarshal(first, &decoded))
	second, err := Marshal(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestMustMarshal_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(0.5) })
	assert.Equal(t, "1", string(MustMarshal(1)))
}
