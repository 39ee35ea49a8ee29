// -- internal/reporting/document.go --
package reporting

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/gatectl/internal/overrides"
)

// EncodeDocument renders set for export. JSON output is exactly what is
// stored in the page, so it can be pasted into localStorage by hand.
func EncodeDocument(set overrides.OverrideSet, format string) ([]byte, error) {
	switch format {
	case FormatJSON, FormatText, "":
		s, err := overrides.Serialize(set)
		if err != nil {
			return nil, err
		}
		return []byte(s + "\n"), nil
	case FormatYAML:
		var buf bytes.Buffer
		doc := set.Clone()
		doc.Normalize()
		if err := encodeYAML(&buf, doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported document format: %s", format)
	}
}

// DecodeDocument parses an exported document. Unlike loading from the page,
// malformed input is an error. YAML input is re-read through the JSON codec,
// so numbers come back as json.Number just as they do from the page.
func DecodeDocument(data []byte, format string) (overrides.OverrideSet, error) {
	switch format {
	case FormatJSON, FormatText, "":
		set, err := overrides.Parse(string(data))
		if err != nil {
			return overrides.Empty(), err
		}
		return set, nil
	case FormatYAML:
		var set overrides.OverrideSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			return overrides.Empty(), fmt.Errorf("parse yaml overrides: %w", err)
		}
		raw, err := overrides.Serialize(set)
		if err != nil {
			return overrides.Empty(), err
		}
		return overrides.Parse(raw)
	default:
		return overrides.Empty(), fmt.Errorf("unsupported document format: %s", format)
	}
}
