// -- internal/reporting/yaml.go --
package reporting

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/gatectl/internal/overrides"
)

// encodeYAML writes doc as a two-space indented YAML document.
func encodeYAML(w io.Writer, doc any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlValue(doc)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

// yamlValue copies v with every json.Number replaced by an int64, or a
// float64 when it has a fraction or exponent. yaml.v3 writes json.Number as a
// quoted string, which would read back as text.
func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlValue(e)
		}
		return out
	case map[string]map[string]any:
		out := make(map[string]map[string]any, len(t))
		for k, params := range t {
			out[k] = yamlValue(params).(map[string]any)
		}
		return out
	case overrides.OverrideSet:
		t.Experiments = yamlValue(nonNil(t.Experiments)).(map[string]map[string]any)
		return t
	case ExperimentRow:
		t.Value, t.Live = yamlValue(t.Value), yamlValue(t.Live)
		return t
	case AllView:
		rows := make([]ExperimentRow, len(t.Experiments))
		for i, row := range t.Experiments {
			rows[i] = yamlValue(row).(ExperimentRow)
		}
		t.Experiments = rows
		return t
	default:
		return v
	}
}
