// File: internal/overrides/set.go
package overrides

import "sort"

// OverrideSet is the persisted override document: locally forced gate values
// and experiment parameters that supersede what the server assigned.
//
// An experiment entry never has zero keys; every mutation and Normalize keep
// that invariant.
type OverrideSet struct {
	Gates       map[string]bool           `json:"gates" yaml:"gates"`
	Experiments map[string]map[string]any `json:"experiments" yaml:"experiments"`
}

// Empty returns the document used when storage holds nothing usable.
func Empty() OverrideSet {
	return OverrideSet{
		Gates:       map[string]bool{},
		Experiments: map[string]map[string]any{},
	}
}

// Normalize fills nil maps and drops experiment entries without keys.
func (s *OverrideSet) Normalize() {
	if s.Gates == nil {
		s.Gates = map[string]bool{}
	}
	if s.Experiments == nil {
		s.Experiments = map[string]map[string]any{}
	}
	for name, params := range s.Experiments {
		if len(params) == 0 {
			delete(s.Experiments, name)
		}
	}
}

// Clone returns a deep copy. Experiment values are copied recursively so the
// copy can be handed to views without sharing nested maps or slices.
func (s OverrideSet) Clone() OverrideSet {
	out := OverrideSet{
		Gates:       make(map[string]bool, len(s.Gates)),
		Experiments: make(map[string]map[string]any, len(s.Experiments)),
	}
	for name, v := range s.Gates {
		out.Gates[name] = v
	}
	for name, params := range s.Experiments {
		out.Experiments[name] = cloneParams(params)
	}
	return out
}

// IsEmpty reports whether the document holds no overrides at all.
func (s OverrideSet) IsEmpty() bool {
	return len(s.Gates) == 0 && len(s.Experiments) == 0
}

// GateNames returns the overridden gate names in ascending order.
func (s OverrideSet) GateNames() []string {
	return sortedKeys(s.Gates)
}

// ExperimentNames returns the overridden experiment names in ascending order.
func (s OverrideSet) ExperimentNames() []string {
	return sortedKeys(s.Experiments)
}

// ParamKeys returns the keys overridden for one experiment in ascending order.
func (s OverrideSet) ParamKeys(experiment string) []string {
	return sortedKeys(s.Experiments[experiment])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneParams(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
