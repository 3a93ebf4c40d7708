package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEnvelope struct {
	query   string
	context map[string]interface{}
	input   map[string]interface{}
	state   map[string]interface{}
}

func (f fakeEnvelope) Query() string { return f.query }
func (f fakeEnvelope) ContextValue(key string) (interface{}, bool) {
	v, ok := f.context[key]
	return v, ok
}
func (f fakeEnvelope) InputValue(key string) (interface{}, bool) {
	v, ok := f.input[key]
	return v, ok
}
func (f fakeEnvelope) StateValue(key string) (interface{}, bool) {
	v, ok := f.state[key]
	return v, ok
}

func TestString_MultiPlaceholderAlwaysString(t *testing.T) {
	env := fakeEnvelope{query: "hello", context: map[string]interface{}{"username": "j.doe"}}
	out := String(env, "Hi {context.username}, you asked: {query}")
	require.Equal(t, "Hi j.doe, you asked: hello", out)
}

func TestString_MissingPlaceholderIsEmpty(t *testing.T) {
	env := fakeEnvelope{}
	out := String(env, "value={input.missing}")
	require.Equal(t, "value=", out)
}

func TestString_NonStringEmbeddedIsJSON(t *testing.T) {
	env := fakeEnvelope{input: map[string]interface{}{"results": []interface{}{"a", "b"}}}
	out := String(env, "results: {input.results}")
	require.Equal(t, `results: ["a","b"]`, out)
}

func TestString_WholePlaceholderPreservesType(t *testing.T) {
	env := fakeEnvelope{input: map[string]interface{}{"results": []interface{}{"a", "b"}}}
	out := String(env, "  {input.results}  ")
	list, ok := out.([]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{"a", "b"}, list)
}

func TestJSON_ResolvesNestedStringLeaves(t *testing.T) {
	env := fakeEnvelope{context: map[string]interface{}{"name": "Outlook"}}
	tmpl := json.RawMessage(`{"a": "{context.name}", "b": {"c": "literal"}}`)
	out, err := JSON(env, tmpl)
	require.NoError(t, err)
	obj := out.(map[string]interface{})
	require.Equal(t, "Outlook", obj["a"])
	require.Equal(t, "literal", obj["b"].(map[string]interface{})["c"])
}

func TestJSON_WholePlaceholderFallback(t *testing.T) {
	env := fakeEnvelope{input: map[string]interface{}{"documents": []interface{}{"doc1", "doc2"}}}
	tmpl := json.RawMessage(`{input.documents}`)
	out, err := JSON(env, tmpl)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"doc1", "doc2"}, out)
}

func TestJSON_MalformedNonPlaceholderFails(t *testing.T) {
	env := fakeEnvelope{}
	tmpl := json.RawMessage(`{not valid json at all`)
	_, err := JSON(env, tmpl)
	require.ErrorIs(t, err, ErrBadTemplate)
}

func TestJSON_UndefinedKeyIsNull(t *testing.T) {
	env := fakeEnvelope{}
	tmpl := json.RawMessage(`{"a": "{input.missing}"}`)
	out, err := JSON(env, tmpl)
	require.NoError(t, err)
	require.Nil(t, out.(map[string]interface{})["a"])
}

func TestSQL_ParameterisesPlaceholders(t *testing.T) {
	env := fakeEnvelope{input: map[string]interface{}{"name": "Outlook", "age": 5}}
	sql, params := SQL(env, "SELECT * FROM tickets WHERE name = '{input.name}' AND age = {input.age}")
	require.Equal(t, "SELECT * FROM tickets WHERE name = ? AND age = ?", sql)
	require.Equal(t, []interface{}{"Outlook", 5}, params)
	require.NotContains(t, sql, "{")
}
