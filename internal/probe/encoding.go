// File: internal/probe/encoding.go
package probe

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Encoding is one of the two response shapes the in-page client produces.
// It is either CompactEncoding or VerboseEncoding.
type Encoding interface {
	isEncoding()
}

// entry is one gate or config as returned by the client. Keys are kept as
// decoded so that present-but-null can be told apart from absent.
type entry map[string]any

// CompactEncoding uses short keys (v, r, gn) and stores config values in a
// shared table indexed by the config's numeric v.
type CompactEncoding struct {
	Gates   map[string]entry
	Configs map[string]entry
	// Values is the shared value table, either a JSON object keyed by the
	// index or an array.
	Values any
}

// VerboseEncoding carries values inline under value, rule_id and group_name.
type VerboseEncoding struct {
	Gates   map[string]entry
	Configs map[string]entry
}

func (CompactEncoding) isEncoding() {}
func (VerboseEncoding) isEncoding() {}

// rawValues is the payload returned by the page script.
type rawValues struct {
	FeatureGates   map[string]any `json:"feature_gates"`
	DynamicConfigs map[string]any `json:"dynamic_configs"`
	Values         any            `json:"values"`
}

// classify picks the encoding. A response is compact when it ships a value
// table or any entry uses the short value key.
func classify(raw rawValues) Encoding {
	gates, configs := toEntries(raw.FeatureGates), toEntries(raw.DynamicConfigs)
	compact := raw.Values != nil
	for _, group := range []map[string]entry{gates, configs} {
		for _, e := range group {
			if _, ok := e["v"]; ok {
				compact = true
			}
		}
	}
	if compact {
		return CompactEncoding{Gates: gates, Configs: configs, Values: raw.Values}
	}
	return VerboseEncoding{Gates: gates, Configs: configs}
}

// toEntries keeps every name. Entries that are not objects read as empty,
// which yields default values instead of failing the whole snapshot.
func toEntries(group map[string]any) map[string]entry {
	out := make(map[string]entry, len(group))
	for name, v := range group {
		m, _ := v.(map[string]any)
		out[name] = entry(m)
	}
	return out
}

// Normalize converts either encoding into a Snapshot sorted by name.
//
// Entries are read tolerantly: a missing rule id becomes "default", and in
// the compact shape an entry without v falls back to the verbose keys.
func Normalize(enc Encoding) Snapshot {
	var (
		gates, configs map[string]entry
		table          any
	)
	switch e := enc.(type) {
	case CompactEncoding:
		gates, configs, table = e.Gates, e.Configs, e.Values
	case VerboseEncoding:
		gates, configs = e.Gates, e.Configs
	}

	snap := Snapshot{
		Gates:       make([]Gate, 0, len(gates)),
		Experiments: make([]Experiment, 0, len(configs)),
	}
	for name, e := range gates {
		snap.Gates = append(snap.Gates, Gate{
			Name:   name,
			Value:  gateValue(e),
			RuleID: ruleID(e),
		})
	}
	for name, e := range configs {
		snap.Experiments = append(snap.Experiments, Experiment{
			Name:      name,
			Value:     configValue(e, table),
			RuleID:    ruleID(e),
			GroupName: groupName(e),
		})
	}
	sort.Slice(snap.Gates, func(i, j int) bool { return snap.Gates[i].Name < snap.Gates[j].Name })
	sort.Slice(snap.Experiments, func(i, j int) bool { return snap.Experiments[i].Name < snap.Experiments[j].Name })
	return snap
}

func gateValue(e entry) bool {
	if v, ok := e["v"]; ok {
		return v == true
	}
	return e["value"] == true
}

func configValue(e entry, table any) any {
	v, ok := e["v"]
	if !ok {
		return e["value"]
	}
	n, isNum := v.(json.Number)
	if !isNum {
		return v
	}
	if found := lookup(table, n); truthy(found) {
		return found
	}
	return map[string]any{}
}

// lookup resolves a compact value index. Out-of-range and non-integer
// indices resolve to nil.
func lookup(table any, idx json.Number) any {
	switch t := table.(type) {
	case map[string]any:
		if v, ok := t[idx.String()]; ok {
			return v
		}
		// 1.0 and 1 address the same slot.
		if f, err := idx.Float64(); err == nil {
			return t[strconv.FormatFloat(f, 'f', -1, 64)]
		}
	case []any:
		f, err := idx.Float64()
		if err != nil || f != math.Trunc(f) || f < 0 || f >= float64(len(t)) {
			return nil
		}
		return t[int(f)]
	}
	return nil
}

func ruleID(e entry) string {
	for _, k := range []string{"r", "rule_id"} {
		if v := e[k]; truthy(v) {
			return stringify(v)
		}
	}
	return "default"
}

func groupName(e entry) string {
	for _, k := range []string{"gn", "group_name"} {
		if v := e[k]; truthy(v) {
			return stringify(v)
		}
	}
	return ""
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		s, err := codec.MarshalToString(t)
		if err != nil {
			return ""
		}
		return s
	}
}
