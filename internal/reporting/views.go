// -- internal/reporting/views.go --
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/gatectl/internal/overrides"
	"github.com/xkilldash9x/gatectl/internal/probe"
)

var codec = jsoniter.Config{
	EscapeHTML:    false,
	SortMapKeys:   true,
	IndentionStep: 2,
}.Froze()

// maxListedKeys is how many experiment parameters the all-values view lists
// before eliding the rest.
const maxListedKeys = 3

// GateRow is one line of the all-values gate table.
type GateRow struct {
	Name       string `json:"name" yaml:"name"`
	Value      bool   `json:"value" yaml:"value"`
	Live       bool   `json:"live" yaml:"live"`
	RuleID     string `json:"ruleId" yaml:"rule_id"`
	Overridden bool   `json:"overridden" yaml:"overridden"`
	// Drift is set when the override differs from what the page evaluated,
	// i.e. the page has not picked it up yet.
	Drift bool `json:"drift" yaml:"drift"`
}

// ExperimentRow is one line of the all-values experiment table.
type ExperimentRow struct {
	Name       string `json:"name" yaml:"name"`
	Value      any    `json:"value" yaml:"value"`
	Live       any    `json:"live" yaml:"live"`
	RuleID     string `json:"ruleId" yaml:"rule_id"`
	GroupName  string `json:"groupName,omitempty" yaml:"group_name,omitempty"`
	Overridden bool   `json:"overridden" yaml:"overridden"`
	Drift      bool   `json:"drift" yaml:"drift"`
}

// AllView merges the live snapshot with the local overrides.
type AllView struct {
	Gates       []GateRow       `json:"gates" yaml:"gates"`
	Experiments []ExperimentRow `json:"experiments" yaml:"experiments"`
}

// canonical rewrites every number as float64, so 3, 3.0 and json.Number("3")
// as produced by different decoders compare equal.
func canonical(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	default:
		return v
	}
}

// BuildAllView joins snap and set. The displayed value is the override when
// there is one; experiment overrides are laid over the live parameters.
func BuildAllView(snap probe.Snapshot, set overrides.OverrideSet) AllView {
	view := AllView{
		Gates:       make([]GateRow, 0, len(snap.Gates)),
		Experiments: make([]ExperimentRow, 0, len(snap.Experiments)),
	}
	for _, g := range snap.Gates {
		row := GateRow{Name: g.Name, Value: g.Value, Live: g.Value, RuleID: g.RuleID}
		if v, ok := set.Gates[g.Name]; ok {
			row.Value, row.Overridden = v, true
			row.Drift = v != g.Value
		}
		view.Gates = append(view.Gates, row)
	}
	for _, e := range snap.Experiments {
		row := ExperimentRow{Name: e.Name, Value: e.Value, Live: e.Value, RuleID: e.RuleID, GroupName: e.GroupName}
		if params, ok := set.Experiments[e.Name]; ok {
			live, _ := e.Value.(map[string]any)
			merged := make(map[string]any, len(live)+len(params))
			for k, v := range live {
				merged[k] = v
			}
			for k, v := range params {
				if lv, found := live[k]; !found || !cmp.Equal(canonical(lv), canonical(v)) {
					row.Drift = true
				}
				merged[k] = v
			}
			row.Value, row.Overridden = merged, true
		}
		view.Experiments = append(view.Experiments, row)
	}
	return view
}

// WriteGates writes the gate override list.
func (r *Reporter) WriteGates(set overrides.OverrideSet) error {
	return r.write(map[string]any{"gates": nonNil(set.Gates)}, func(w io.Writer) {
		names := set.GateNames()
		if len(names) == 0 {
			fmt.Fprintln(w, "No gate overrides")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "GATE\tVALUE")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%t\n", name, set.Gates[name])
		}
		tw.Flush()
	})
}

// WriteExperiments writes the experiment override list, one row per parameter.
func (r *Reporter) WriteExperiments(set overrides.OverrideSet) error {
	return r.write(map[string]any{"experiments": nonNil(set.Experiments)}, func(w io.Writer) {
		names := set.ExperimentNames()
		if len(names) == 0 {
			fmt.Fprintln(w, "No experiment overrides")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "EXPERIMENT\tKEY\tVALUE")
		for _, name := range names {
			for _, key := range set.ParamKeys(name) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, key, overrides.FormatValue(set.Experiments[name][key]))
			}
		}
		tw.Flush()
	})
}

// WriteAll writes the merged view of live values and overrides.
func (r *Reporter) WriteAll(view AllView) error {
	return r.write(view, func(w io.Writer) {
		fmt.Fprintf(w, "GATES (%d)\n", len(view.Gates))
		if len(view.Gates) > 0 {
			tw := newTable(w)
			fmt.Fprintln(tw, "NAME\tVALUE\tRULE\tSOURCE")
			for _, g := range view.Gates {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", g.Name, g.Value, g.RuleID, source(g.Overridden, g.Drift))
			}
			tw.Flush()
		}

		fmt.Fprintf(w, "\nEXPERIMENTS (%d)\n", len(view.Experiments))
		if len(view.Experiments) > 0 {
			tw := newTable(w)
			fmt.Fprintln(tw, "NAME\tGROUP\tRULE\tPARAMETERS\tSOURCE")
			for _, e := range view.Experiments {
				group := e.GroupName
				if group == "" {
					group = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, group, e.RuleID, summarize(e.Value), source(e.Overridden, e.Drift))
			}
			tw.Flush()
		}
	})
}

// WriteFailure writes a probe failure in place of the all-values view.
func (r *Reporter) WriteFailure(f probe.Failure) error {
	return r.write(map[string]any{"failure": f}, func(w io.Writer) {
		fmt.Fprintln(w, f.String())
	})
}

// WriteExperimentDetail writes every parameter of one live experiment.
func (r *Reporter) WriteExperimentDetail(row ExperimentRow) error {
	return r.write(row, func(w io.Writer) {
		fmt.Fprintf(w, "%s  rule=%s", row.Name, row.RuleID)
		if row.GroupName != "" {
			fmt.Fprintf(w, "  group=%s", row.GroupName)
		}
		fmt.Fprintln(w)
		params, ok := row.Value.(map[string]any)
		if !ok {
			fmt.Fprintf(w, "  %s\n", overrides.FormatValue(row.Value))
			return
		}
		tw := newTable(w)
		for _, k := range (probe.Experiment{Value: params}).ParamKeys() {
			fmt.Fprintf(tw, "  %s\t%s\n", k, overrides.FormatValue(params[k]))
		}
		tw.Flush()
	})
}

func (r *Reporter) write(doc any, text func(io.Writer)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.format {
	case FormatJSON:
		if err := codec.NewEncoder(r.out).Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case FormatYAML:
		return encodeYAML(r.out, doc)
	default:
		text(r.out)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func source(overridden, drift bool) string {
	switch {
	case overridden && drift:
		return "Override (reload pending)"
	case overridden:
		return "Override"
	default:
		return "-"
	}
}

// summarize lists the first few parameter names of an experiment value.
func summarize(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return overrides.FormatValue(v)
	}
	if len(m) == 0 {
		return "{}"
	}
	keys := probe.Experiment{Value: m}.ParamKeys()
	if len(keys) > maxListedKeys {
		return strings.Join(keys[:maxListedKeys], ", ") + ", ..."
	}
	return strings.Join(keys, ", ")
}

func nonNil[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}

// Count formats n with a singular or plural noun.
func Count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
