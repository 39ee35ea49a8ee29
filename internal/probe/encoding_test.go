// File: internal/probe/encoding_test.go
package probe

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSnapshot(t *testing.T, raw string) Snapshot {
	t.Helper()
	res := Decode(raw)
	require.True(t, res.OK(), "unexpected failure: %+v", res.Failure)
	return *res.Snapshot
}

func TestDecode_Compact(t *testing.T) {
	snap := decodeSnapshot(t, `{"values":{
		"feature_gates":{
			"new_checkout":{"v":true,"r":"rule_1"},
			"dark_mode":{"v":false}
		},
		"dynamic_configs":{
			"pricing":{"v":0,"r":"exp_1","gn":"Control"},
			"onboarding":{"v":1}
		},
		"values":{"0":{"headline":"Simple"},"1":{"steps":3}}
	}}`)

	want := Snapshot{
		Gates: []Gate{
			{Name: "dark_mode", Value: false, RuleID: "default"},
			{Name: "new_checkout", Value: true, RuleID: "rule_1"},
		},
		Experiments: []Experiment{
			{Name: "onboarding", Value: map[string]any{"steps": json.Number("3")}, RuleID: "default"},
			{Name: "pricing", Value: map[string]any{"headline": "Simple"}, RuleID: "exp_1", GroupName: "Control"},
		},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_CompactIndexOutOfRange(t *testing.T) {
	snap := decodeSnapshot(t, `{"values":{
		"feature_gates":{},
		"dynamic_configs":{
			"missing":{"v":7,"r":"exp_missing"},
			"present":{"v":0}
		},
		"values":{"0":{"a":1}}
	}}`)

	require.Len(t, snap.Experiments, 2)
	assert.Equal(t, "missing", snap.Experiments[0].Name)
	assert.Equal(t, map[string]any{}, snap.Experiments[0].Value)
	assert.Equal(t, "exp_missing", snap.Experiments[0].RuleID)
	assert.Equal(t, map[string]any{"a": json.Number("1")}, snap.Experiments[1].Value)
}

func TestLookup(t *testing.T) {
	arr := []any{map[string]any{"x": true}, nil, "s"}
	obj := map[string]any{"1": "one"}

	tests := []struct {
		name  string
		table any
		idx   string
		want  any
	}{
		{"array hit", arr, "0", map[string]any{"x": true}},
		{"array out of range", arr, "3", nil},
		{"array negative", arr, "-1", nil},
		{"array fractional", arr, "0.5", nil},
		{"object hit", obj, "1", "one"},
		{"object float key", obj, "1.0", "one"},
		{"object miss", obj, "2", nil},
		{"no table", nil, "0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lookup(tt.table, json.Number(tt.idx)))
		})
	}
}

func TestConfigValue_Compact(t *testing.T) {
	table := []any{map[string]any{"k": "v"}, 0, ""}

	assert.Equal(t, map[string]any{}, configValue(entry{"v": json.Number("1")}, table), "falsy table entry")
	assert.Equal(t, map[string]any{}, configValue(entry{"v": json.Number("2")}, table), "empty string entry")
	assert.Equal(t, "inline", configValue(entry{"v": "inline"}, table), "non-numeric v is used as is")
	assert.Equal(t, map[string]any{"k": "v"}, configValue(entry{"v": json.Number("0")}, table))
	assert.Equal(t, "verbose", configValue(entry{"value": "verbose"}, table), "no v falls back to value")
}

func TestDecode_Verbose(t *testing.T) {
	snap := decodeSnapshot(t, `{"values":{
		"feature_gates":{
			"beta":{"value":true,"rule_id":"rule_beta"},
			"legacy":{"value":"yes"}
		},
		"dynamic_configs":{
			"layout":{"value":{"columns":2},"rule_id":"exp_layout","group_name":"Test"}
		},
		"values":null
	}}`)

	assert.Equal(t, []Gate{
		{Name: "beta", Value: true, RuleID: "rule_beta"},
		{Name: "legacy", Value: false, RuleID: "default"},
	}, snap.Gates)
	require.Len(t, snap.Experiments, 1)
	assert.Equal(t, Experiment{
		Name:      "layout",
		Value:     map[string]any{"columns": json.Number("2")},
		RuleID:    "exp_layout",
		GroupName: "Test",
	}, snap.Experiments[0])
}

func TestClassify(t *testing.T) {
	t.Run("value table means compact", func(t *testing.T) {
		enc := classify(rawValues{Values: map[string]any{}})
		assert.IsType(t, CompactEncoding{}, enc)
	})
	t.Run("short key means compact", func(t *testing.T) {
		enc := classify(rawValues{FeatureGates: map[string]any{"g": map[string]any{"v": true}}})
		assert.IsType(t, CompactEncoding{}, enc)
	})
	t.Run("otherwise verbose", func(t *testing.T) {
		enc := classify(rawValues{FeatureGates: map[string]any{"g": map[string]any{"value": true}}})
		assert.IsType(t, VerboseEncoding{}, enc)
	})
	t.Run("non-object entries read as empty", func(t *testing.T) {
		snap := Normalize(classify(rawValues{FeatureGates: map[string]any{"odd": "text"}}))
		assert.Equal(t, []Gate{{Name: "odd", Value: false, RuleID: "default"}}, snap.Gates)
	})
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason Reason
		detail string
	}{
		{"empty", "", ReasonClientAbsent, "no data returned from page"},
		{"null", "null", ReasonClientAbsent, "no data returned from page"},
		{"reported by page", `{"error":"client_uninitialized","detail":"Client not initialized"}`, ReasonClientUninitialized, "Client not initialized"},
		{"store", `{"error":"store_inaccessible","detail":"boom"}`, ReasonStoreInaccessible, "boom"},
		{"no values", `{}`, ReasonNoValues, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Decode(tt.raw)
			require.False(t, res.OK())
			require.NotNil(t, res.Failure)
			assert.Equal(t, tt.reason, res.Failure.Reason)
			assert.Equal(t, tt.detail, res.Failure.Detail)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		res := Decode("not json")
		require.NotNil(t, res.Failure)
		assert.Equal(t, ReasonNoValues, res.Failure.Reason)
	})
}

func TestFailureString(t *testing.T) {
	assert.Equal(t, "Statsig client not initialized", Failure{Reason: ReasonClientUninitialized}.String())
	assert.Equal(t, "Cannot access this page: chrome://newtab", Failure{Reason: ReasonHostUnavailable, Detail: "chrome://newtab"}.String())
	assert.Equal(t, "mystery", Reason("mystery").Text())
}
