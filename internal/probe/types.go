// File: internal/probe/types.go
package probe

// Gate is a feature gate as evaluated by the live client.
type Gate struct {
	Name   string `json:"name" yaml:"name"`
	Value  bool   `json:"value" yaml:"value"`
	RuleID string `json:"ruleId" yaml:"rule_id"`
}

// Experiment is a dynamic config or experiment as evaluated by the live client.
type Experiment struct {
	Name      string `json:"name" yaml:"name"`
	Value     any    `json:"value" yaml:"value"`
	RuleID    string `json:"ruleId" yaml:"rule_id"`
	GroupName string `json:"groupName,omitempty" yaml:"group_name,omitempty"`
}

// Key returns the name used for filtering and sorting.
func (g Gate) Key() string { return g.Name }

// Key returns the name used for filtering and sorting.
func (e Experiment) Key() string { return e.Name }

// ParamKeys returns the experiment's parameter names in ascending order, or
// nil when the value is not an object.
func (e Experiment) ParamKeys() []string {
	m, ok := e.Value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}

// Snapshot is the read-only view of every gate and experiment the page knows.
// It is never persisted.
type Snapshot struct {
	Gates       []Gate       `json:"gates" yaml:"gates"`
	Experiments []Experiment `json:"experiments" yaml:"experiments"`
}

// Reason classifies why a snapshot could not be produced.
type Reason string

const (
	ReasonClientAbsent        Reason = "client_absent"
	ReasonClientUninitialized Reason = "client_uninitialized"
	ReasonStoreInaccessible   Reason = "store_inaccessible"
	ReasonNoValues            Reason = "no_values"
	ReasonHostUnavailable     Reason = "host_unavailable"
)

var reasonText = map[Reason]string{
	ReasonClientAbsent:        "Statsig client not found on page",
	ReasonClientUninitialized: "Statsig client not initialized",
	ReasonStoreInaccessible:   "Could not access client store",
	ReasonNoValues:            "No values in store (client may still be loading)",
	ReasonHostUnavailable:     "Cannot access this page",
}

// Text returns a user-facing description of the reason.
func (r Reason) Text() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return string(r)
}

// Failure is a probe outcome that carries no snapshot.
type Failure struct {
	Reason Reason `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (f Failure) String() string {
	if f.Detail == "" {
		return f.Reason.Text()
	}
	return f.Reason.Text() + ": " + f.Detail
}

// Result holds exactly one of Snapshot or Failure.
type Result struct {
	Snapshot *Snapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Failure  *Failure  `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// OK reports whether the result carries a snapshot.
func (r Result) OK() bool { return r.Snapshot != nil }

func failed(reason Reason, detail string) Result {
	return Result{Failure: &Failure{Reason: reason, Detail: detail}}
}
