// internal/reporting/reporter_test.go
package reporting_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/gatectl/internal/overrides"
	"github.com/xkilldash9x/gatectl/internal/probe"
	"github.com/xkilldash9x/gatectl/internal/reporting"
)

func newReporter(t *testing.T, format string, opts ...reporting.Option) (*reporting.Reporter, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, status := &bytes.Buffer{}, &bytes.Buffer{}
	r, err := reporting.New(format, out, status, opts...)
	require.NoError(t, err)
	return r, out, status
}

func sampleSet() overrides.OverrideSet {
	return overrides.OverrideSet{
		Gates: map[string]bool{"new_checkout": true, "dark_mode": false},
		Experiments: map[string]map[string]any{
			"pricing_page_test": {"discount": json.Number("15"), "headline": "Sale"},
		},
	}
}

func TestNew(t *testing.T) {
	r, _, _ := newReporter(t, "")
	assert.Equal(t, reporting.FormatText, r.Format())

	_, err := reporting.New("sarif", &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported output format: sarif")
}

func TestWriteGates_Text(t *testing.T) {
	r, out, _ := newReporter(t, reporting.FormatText)

	require.NoError(t, r.WriteGates(sampleSet()))
	assert.Equal(t, "GATE          VALUE\ndark_mode     false\nnew_checkout  true\n", out.String())

	out.Reset()
	require.NoError(t, r.WriteGates(overrides.Empty()))
	assert.Equal(t, "No gate overrides\n", out.String())
}

func TestWriteExperiments_Text(t *testing.T) {
	r, out, _ := newReporter(t, reporting.FormatText)

	require.NoError(t, r.WriteExperiments(sampleSet()))
	assert.Equal(t,
		"EXPERIMENT         KEY       VALUE\n"+
			"pricing_page_test  discount  15\n"+
			"pricing_page_test  headline  \"Sale\"\n",
		out.String())

	out.Reset()
	require.NoError(t, r.WriteExperiments(overrides.OverrideSet{}))
	assert.Equal(t, "No experiment overrides\n", out.String())
}

func TestWriteGates_JSONAndYAML(t *testing.T) {
	r, out, _ := newReporter(t, reporting.FormatJSON)
	require.NoError(t, r.WriteGates(sampleSet()))
	assert.JSONEq(t, `{"gates":{"dark_mode":false,"new_checkout":true}}`, out.String())

	r, out, _ = newReporter(t, reporting.FormatYAML)
	require.NoError(t, r.WriteExperiments(sampleSet()))
	assert.Equal(t, "experiments:\n  pricing_page_test:\n    discount: 15\n    headline: Sale\n", out.String())
}

func TestRendererCallbacks(t *testing.T) {
	r, out, status := newReporter(t, reporting.FormatText, reporting.WithColor(false))

	r.RenderGates(sampleSet())
	assert.Contains(t, out.String(), "new_checkout")

	out.Reset()
	r.SetQuiet(true)
	r.RenderGates(sampleSet())
	r.RenderExperiments(sampleSet())
	assert.Empty(t, out.String(), "quiet suppresses controller views")

	require.NoError(t, r.WriteGates(sampleSet()))
	assert.NotEmpty(t, out.String(), "explicit writes ignore quiet")

	r.Status(overrides.Status{Kind: overrides.StatusSuccess, Message: `Gate "x" set to true`})
	r.Status(overrides.Status{Kind: overrides.StatusError, Message: "Could not save overrides"})
	r.Status(overrides.Status{Kind: overrides.StatusInfo, Message: "Page refreshed"})
	assert.Equal(t, "✓ Gate \"x\" set to true\n✗ Could not save overrides\n• Page refreshed\n", status.String())
}

func TestStatus_Color(t *testing.T) {
	r, _, status := newReporter(t, reporting.FormatJSON, reporting.WithColor(true))
	r.Status(overrides.Status{Kind: overrides.StatusError, Message: "boom"})
	assert.Equal(t, "\x1b[31m✗ boom\x1b[0m\n", status.String())
}

func liveSnapshot() probe.Snapshot {
	return probe.Snapshot{
		Gates: []probe.Gate{
			{Name: "dark_mode", Value: true, RuleID: "rule_dark"},
			{Name: "new_checkout", Value: false, RuleID: "holdout"},
		},
		Experiments: []probe.Experiment{
			{Name: "onboarding_flow", Value: map[string]any{"cta": "Start", "skip_intro": true, "steps": json.Number("3"), "theme": "light"}, RuleID: "exp_onboarding", GroupName: "Test"},
			{Name: "pricing_page_test", Value: map[string]any{"discount": json.Number("15"), "headline": "Simple"}, RuleID: "exp_pricing"},
		},
	}
}

func TestBuildAllView(t *testing.T) {
	set := overrides.OverrideSet{
		Gates: map[string]bool{"new_checkout": true, "dark_mode": true, "unknown": true},
		Experiments: map[string]map[string]any{
			"pricing_page_test": {"discount": 15},
			"onboarding_flow":   {"steps": json.Number("5")},
		},
	}
	view := reporting.BuildAllView(liveSnapshot(), set)

	want := []reporting.GateRow{
		{Name: "dark_mode", Value: true, Live: true, RuleID: "rule_dark", Overridden: true},
		{Name: "new_checkout", Value: true, Live: false, RuleID: "holdout", Overridden: true, Drift: true},
	}
	if diff := cmp.Diff(want, view.Gates); diff != "" {
		t.Errorf("gate rows (-want +got):\n%s", diff)
	}

	require.Len(t, view.Experiments, 2)
	onboarding, pricing := view.Experiments[0], view.Experiments[1]
	assert.True(t, onboarding.Overridden)
	assert.True(t, onboarding.Drift)
	assert.Equal(t, json.Number("5"), onboarding.Value.(map[string]any)["steps"])
	assert.Equal(t, "light", onboarding.Value.(map[string]any)["theme"], "live parameters are kept")

	assert.True(t, pricing.Overridden)
	assert.False(t, pricing.Drift, "15 and json 15 are the same value")
}

func TestWriteAll_Text(t *testing.T) {
	r, out, _ := newReporter(t, reporting.FormatText)
	set := overrides.OverrideSet{Gates: map[string]bool{"new_checkout": true}}

	require.NoError(t, r.WriteAll(reporting.BuildAllView(liveSnapshot(), set)))
	text := out.String()
	assert.Contains(t, text, "GATES (2)")
	assert.Contains(t, text, "Override (reload pending)")
	assert.Contains(t, text, "EXPERIMENTS (2)")
	assert.Contains(t, text, "cta, skip_intro, steps, ...")
	assert.Contains(t, text, "discount, headline")
}

func TestWriteFailure(t *testing.T) {
	r, out, _ := newReporter(t, reporting.FormatText)
	require.NoError(t, r.WriteFailure(probe.Failure{Reason: probe.ReasonClientUninitialized}))
	assert.Equal(t, "Statsig client not initialized\n", out.String())

	r, out, _ = newReporter(t, reporting.FormatJSON)
	require.NoError(t, r.WriteFailure(probe.Failure{Reason: probe.ReasonNoValues, Detail: "loading"}))
	assert.JSONEq(t, `{"failure":{"reason":"no_values","detail":"loading"}}`, out.String())
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, format := range []string{reporting.FormatJSON, reporting.FormatYAML} {
		t.Run(format, func(t *testing.T) {
			data, err := reporting.EncodeDocument(sampleSet(), format)
			require.NoError(t, err)

			got, err := reporting.DecodeDocument(data, format)
			require.NoError(t, err)
			if diff := cmp.Diff(sampleSet(), got); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDocument_YAMLKeepsNumbers(t *testing.T) {
	set := overrides.OverrideSet{
		Gates: map[string]bool{},
		Experiments: map[string]map[string]any{
			"pricing_page_test": {
				"count":  json.Number("3"),
				"ratio":  json.Number("1.5"),
				"sizes":  []any{json.Number("1"), json.Number("2")},
				"coupon": "15",
			},
		},
	}
	data, err := reporting.EncodeDocument(set, reporting.FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "count: 3\n")
	assert.Contains(t, string(data), "ratio: 1.5\n")
	assert.Contains(t, string(data), `coupon: "15"`, "numeric strings stay strings")

	got, err := reporting.DecodeDocument(data, reporting.FormatYAML)
	require.NoError(t, err)
	if diff := cmp.Diff(set, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
	raw, err := overrides.Serialize(got)
	require.NoError(t, err)
	assert.Equal(t, `{"gates":{},"experiments":{"pricing_page_test":{"count":3,"coupon":"15","ratio":1.5,"sizes":[1,2]}}}`, raw)
}

func TestWriteExperimentDetail_YAMLNumbers(t *testing.T) {
	r, out, _ := newReporter(t, reporting.FormatYAML)
	row := reporting.ExperimentRow{
		Name:  "pricing_page_test",
		Value: map[string]any{"discount": json.Number("15"), "ratio": json.Number("0.25")},
		Live:  map[string]any{"discount": json.Number("10")},
	}
	require.NoError(t, r.WriteExperimentDetail(row))
	assert.Contains(t, out.String(), "discount: 15\n")
	assert.Contains(t, out.String(), "ratio: 0.25\n")
	assert.Contains(t, out.String(), "discount: 10\n")
	assert.NotContains(t, out.String(), `"15"`)
}

func TestDocument_JSONMatchesStorage(t *testing.T) {
	data, err := reporting.EncodeDocument(overrides.OverrideSet{Gates: map[string]bool{"new_checkout": true}}, reporting.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, `{"gates":{"new_checkout":true},"experiments":{}}`+"\n", string(data))
}

func TestDecodeDocument_Errors(t *testing.T) {
	_, err := reporting.DecodeDocument([]byte("{not json"), reporting.FormatJSON)
	assert.Error(t, err)
	_, err = reporting.DecodeDocument([]byte("gates: [1, 2"), reporting.FormatYAML)
	assert.Error(t, err)
	_, err = reporting.DecodeDocument([]byte("{}"), "toml")
	assert.ErrorContains(t, err, "unsupported document format")
}

func TestOpenOutput(t *testing.T) {
	w, err := reporting.OpenOutput("")
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "export.json")
	w, err = reporting.OpenOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = reporting.OpenOutput(filepath.Join(t.TempDir(), "missing", "dir", "x.json"))
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	assert.Equal(t, "1 gate", reporting.Count(1, "gate"))
	assert.Equal(t, "0 experiments", reporting.Count(0, "experiment"))
}
