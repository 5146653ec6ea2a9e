package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{name: "string value", input: json.RawMessage(`"hello"`), want: "hello"},
		{name: "integer value", input: json.RawMessage(`42`), want: "42"},
		{name: "float value", input: json.RawMessage(`3.14`), want: "3.14"},
		{name: "boolean", input: json.RawMessage(`true`), want: "true"},
		{name: "null value", input: json.RawMessage(`null`), want: ""},
		{name: "empty", input: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(tt.input))
		})
	}
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	type payload struct {
		Tone StringList `json:"tone"`
	}

	tests := []struct {
		name string
		json string
		want StringList
	}{
		{name: "array", json: `{"tone": ["warm", "confident"]}`, want: StringList{"warm", "confident"}},
		{name: "single string", json: `{"tone": "warm"}`, want: StringList{"warm"}},
		{name: "mixed scalars and blanks", json: `{"tone": ["warm", 3, "  ", null]}`, want: StringList{"warm", "3"}},
		{name: "null", json: `{"tone": null}`, want: nil},
		{name: "missing", json: `{}`, want: nil},
		{name: "blank string", json: `{"tone": "   "}`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, json.Unmarshal([]byte(tt.json), &p))
			assert.Equal(t, tt.want, p.Tone)
		})
	}
}

func TestStringList_RejectsObjects(t *testing.T) {
	var l StringList
	err := json.Unmarshal([]byte(`[{"a": 1}]`), &l)
	require.NoError(t, err)
	assert.Equal(t, StringList{`{"a": 1}`}, l)
}
