// Package template implements the placeholder substitution mini-language
// shared by every action handler: {query}, {context.KEY}, {input.KEY},
// {state.KEY}, {env.KEY}, in string, JSON-template, and
// SQL-parameterisation modes.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ErrBadTemplate is returned when a JSON-template slot fails to parse
// and is not a single whole placeholder.
var ErrBadTemplate = errors.New("template: malformed JSON template")

// Envelope is the minimal read-only view over the execution envelope
// the evaluator needs. internal/engine's envelope type satisfies it.
type Envelope interface {
	Query() string
	ContextValue(key string) (interface{}, bool)
	InputValue(key string) (interface{}, bool)
	StateValue(key string) (interface{}, bool)
}

var placeholderRe = regexp.MustCompile(`\{(query|context\.[^{}]+|input\.[^{}]+|state\.[^{}]+|env\.[^{}]+)\}`)

// Resolve looks up a single placeholder expression (without braces) against
// the envelope. ok is false, with a nil value, whenever the value is
// missing: an unset context/input/state key or environment variable, or
// an unknown category. Callers decide what a missing value becomes
// (String mode uses the empty string, JSON mode null).
func Resolve(env Envelope, expr string) (interface{}, bool) {
	switch {
	case expr == "query":
		return env.Query(), true
	case strings.HasPrefix(expr, "context."):
		return env.ContextValue(strings.TrimPrefix(expr, "context."))
	case strings.HasPrefix(expr, "input."):
		return env.InputValue(strings.TrimPrefix(expr, "input."))
	case strings.HasPrefix(expr, "state."):
		return env.StateValue(strings.TrimPrefix(expr, "state."))
	case strings.HasPrefix(expr, "env."):
		name := strings.TrimPrefix(expr, "env.")
		v, ok := os.LookupEnv(name)
		return v, ok
	default:
		return nil, false
	}
}

// wholePlaceholder returns the inner expression if tmpl, trimmed, is
// exactly one {...} placeholder and nothing else.
func wholePlaceholder(tmpl string) (string, bool) {
	trimmed := strings.TrimSpace(tmpl)
	m := placeholderRe.FindStringSubmatchIndex(trimmed)
	if m == nil {
		return "", false
	}
	if m[0] != 0 || m[1] != len(trimmed) {
		return "", false
	}
	return trimmed[m[2]:m[3]], true
}

// String fills every placeholder in tmpl (string mode). Missing values
// resolve to the empty string. Non-string values embedded in a larger
// string are serialised as compact JSON. The whole-placeholder exception
// (R3): if tmpl, trimmed, is exactly one placeholder, the resolved value
// is returned with its original type, not stringified.
func String(env Envelope, tmpl string) interface{} {
	if expr, ok := wholePlaceholder(tmpl); ok {
		v, found := Resolve(env, expr)
		if !found {
			return ""
		}
		return v
	}

	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		expr := match[1 : len(match)-1]
		v, ok := Resolve(env, expr)
		if !ok || v == nil {
			return ""
		}
		return stringify(v)
	})
}

// StringValue is a convenience wrapper over String for call sites that
// always want a string regardless of the whole-placeholder rule (e.g.
// URL templates, which are never structured).
func StringValue(env Envelope, tmpl string) string {
	v := String(env, tmpl)
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// JSON resolves tmpl in JSON-template mode: tmpl is parsed as JSON and
// every string leaf has its placeholders resolved via String-mode rules.
// If parsing fails and tmpl is a single whole placeholder, falls back to
// the whole-placeholder rule (returning whatever type that value is).
func JSON(env Envelope, tmpl json.RawMessage) (interface{}, error) {
	if len(strings.TrimSpace(string(tmpl))) == 0 {
		return nil, nil
	}

	var parsed interface{}
	if err := json.Unmarshal(tmpl, &parsed); err != nil {
		if expr, ok := wholePlaceholder(string(tmpl)); ok {
			v, found := Resolve(env, expr)
			if !found {
				return nil, nil
			}
			return v, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}

	return resolveJSONValue(env, parsed), nil
}

// JSONObject is JSON mode constrained to object results, used by
// headers_template/body_template/data_template which must resolve to a
// JSON object (headers, bodies, save/call payloads).
func JSONObject(env Envelope, tmpl json.RawMessage) (map[string]interface{}, error) {
	v, err := JSON(env, tmpl)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]interface{}{}, nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrBadTemplate)
	}
	return obj, nil
}

// jsonStringLeaf resolves one JSON-template string leaf. It differs from
// String only in the whole-placeholder-missing case: JSON mode preserves
// an undefined {env.KEY} (or other unset) whole placeholder as JSON null
// rather than the empty string String mode uses for non-structured text.
func jsonStringLeaf(env Envelope, tmpl string) interface{} {
	if expr, ok := wholePlaceholder(tmpl); ok {
		v, found := Resolve(env, expr)
		if !found {
			return nil
		}
		return v
	}
	return String(env, tmpl)
}

func resolveJSONValue(env Envelope, v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return jsonStringLeaf(env, t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = resolveJSONValue(env, val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = resolveJSONValue(env, val)
		}
		return out
	default:
		return t
	}
}

// sqlPlaceholderRe additionally tolerates a placeholder wrapped in single
// or double quotes, which SQL authors write to keep the template itself
// valid-looking SQL (e.g. '{input.name}').
var sqlPlaceholderRe = regexp.MustCompile(`'\{[^{}]+\}'|"\{[^{}]+\}"|\{[^{}]+\}`)

// SQL resolves tmpl in SQL-parameterisation mode: every placeholder
// (optionally quote-wrapped) is replaced with a single `?`, and the
// resolved values are collected in appearance order. This is the only
// mode that touches user data destined for a SQL string, and it never
// interpolates a value directly into the returned SQL.
func SQL(env Envelope, tmpl string) (string, []interface{}) {
	var params []interface{}
	sql := sqlPlaceholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		inner := strings.Trim(match, `'"`)
		expr := inner[1 : len(inner)-1]
		v, ok := Resolve(env, expr)
		if !ok {
			v = nil
		}
		params = append(params, v)
		return "?"
	})
	return sql, params
}
