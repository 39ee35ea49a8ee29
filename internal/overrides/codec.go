// File: internal/overrides/codec.go
package overrides

import (
	"encoding/json"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// codec matches what the page's own JSON.stringify produces: no HTML
// escaping, and numbers kept as literals so values survive a round trip
// byte for byte. Map keys are sorted to keep writes deterministic.
var codec = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Parse decodes a stored document. Callers treat an error as "no overrides";
// it is never surfaced to the user. Only input that is not a JSON object is an
// error: gates that are not booleans and experiments that are not objects are
// dropped one by one, so a single bad entry written by hand or by another tool
// does not cost the rest of the document.
func Parse(raw string) (OverrideSet, error) {
	var doc any
	if err := codec.UnmarshalFromString(raw, &doc); err != nil {
		return Empty(), fmt.Errorf("parse overrides: %w", err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return Empty(), fmt.Errorf("parse overrides: document is %s, not an object", jsonType(doc))
	}

	set := Empty()
	if gates, ok := root["gates"].(map[string]any); ok {
		for name, v := range gates {
			if b, ok := v.(bool); ok {
				set.Gates[name] = b
			}
		}
	}
	if experiments, ok := root["experiments"].(map[string]any); ok {
		for name, v := range experiments {
			if params, ok := v.(map[string]any); ok {
				set.Experiments[name] = params
			}
		}
	}
	set.Normalize()
	return set, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case json.Number:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Serialize encodes the whole document. The output always has both top-level
// maps, even when empty.
func Serialize(set OverrideSet) (string, error) {
	out := set
	if out.Gates == nil {
		out.Gates = map[string]bool{}
	}
	if out.Experiments == nil {
		out.Experiments = map[string]map[string]any{}
	}
	s, err := codec.MarshalToString(out)
	if err != nil {
		return "", fmt.Errorf("serialize overrides: %w", err)
	}
	return s, nil
}

// ParseValue interprets user input for an experiment parameter: valid JSON
// (booleans, numbers, arrays, objects, quoted strings) is decoded, anything
// else is kept as a plain string.
func ParseValue(input string) any {
	var v any
	if err := codec.UnmarshalFromString(input, &v); err != nil {
		return input
	}
	return v
}

// FormatValue renders a parameter value for display: strings quoted,
// objects and arrays as compact JSON, everything else in literal form.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return `"` + t + `"`
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s, err := codec.MarshalToString(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return s
	}
}
