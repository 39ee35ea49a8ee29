// File: internal/overrides/mutation.go
package overrides

import "fmt"

// Mutation is one user-initiated change to the override document. Apply
// records whatever it needs so that Revert restores the exact prior state,
// or returns an error and leaves set untouched. Revert is only ever called
// once, directly after a successful Apply.
type Mutation interface {
	Apply(set *OverrideSet) error
	Revert(set *OverrideSet)
	// Describe returns the success message shown to the user.
	Describe() string
	// Views reports which lists the mutation touches.
	Views() View
}

// -- Gates --

// setGate forces a gate. With toggle set, value is computed from the current
// document inside Apply: the inverse of the override, or true when there is
// none.
type setGate struct {
	name    string
	value   bool
	toggle  bool
	prev    bool
	existed bool
}

func (m *setGate) Apply(set *OverrideSet) error {
	m.prev, m.existed = set.Gates[m.name]
	if m.toggle {
		m.value = !m.prev
	}
	set.Gates[m.name] = m.value
	return nil
}

func (m *setGate) Revert(set *OverrideSet) {
	if m.existed {
		set.Gates[m.name] = m.prev
		return
	}
	delete(set.Gates, m.name)
}

func (m *setGate) Describe() string {
	return fmt.Sprintf("Gate %q set to %t", m.name, m.value)
}

func (m *setGate) Views() View { return ViewGates }

type removeGate struct {
	name string
	prev bool
}

func (m *removeGate) Apply(set *OverrideSet) error {
	prev, ok := set.Gates[m.name]
	if !ok {
		return fmt.Errorf("gate %q: %w", m.name, ErrNotFound)
	}
	m.prev = prev
	delete(set.Gates, m.name)
	return nil
}

func (m *removeGate) Revert(set *OverrideSet) {
	set.Gates[m.name] = m.prev
}

func (m *removeGate) Describe() string {
	return fmt.Sprintf("Gate %q override removed", m.name)
}

func (m *removeGate) Views() View { return ViewGates }

// -- Experiments --

type setExperimentValue struct {
	experiment string
	key        string
	value      any

	prev       any
	keyExisted bool
}

func (m *setExperimentValue) Apply(set *OverrideSet) error {
	params, ok := set.Experiments[m.experiment]
	if !ok {
		params = map[string]any{}
		set.Experiments[m.experiment] = params
	}
	m.prev, m.keyExisted = params[m.key]
	params[m.key] = m.value
	return nil
}

func (m *setExperimentValue) Revert(set *OverrideSet) {
	params := set.Experiments[m.experiment]
	if m.keyExisted {
		params[m.key] = m.prev
		return
	}
	delete(params, m.key)
	if len(params) == 0 {
		delete(set.Experiments, m.experiment)
	}
}

func (m *setExperimentValue) Describe() string {
	return fmt.Sprintf("Experiment %q: %s = %s", m.experiment, m.key, FormatValue(m.value))
}

func (m *setExperimentValue) Views() View { return ViewExperiments }

type removeExperimentValue struct {
	experiment string
	key        string
	prev       any
}

func (m *removeExperimentValue) Apply(set *OverrideSet) error {
	params := set.Experiments[m.experiment]
	prev, ok := params[m.key]
	if !ok {
		return fmt.Errorf("experiment %q key %q: %w", m.experiment, m.key, ErrNotFound)
	}
	m.prev = prev
	delete(params, m.key)
	if len(params) == 0 {
		delete(set.Experiments, m.experiment)
	}
	return nil
}

func (m *removeExperimentValue) Revert(set *OverrideSet) {
	params, ok := set.Experiments[m.experiment]
	if !ok {
		params = map[string]any{}
		set.Experiments[m.experiment] = params
	}
	params[m.key] = m.prev
}

func (m *removeExperimentValue) Describe() string {
	return fmt.Sprintf("Experiment %q: %s override removed", m.experiment, m.key)
}

func (m *removeExperimentValue) Views() View { return ViewExperiments }

type removeExperiment struct {
	experiment string
	prev       map[string]any
}

func (m *removeExperiment) Apply(set *OverrideSet) error {
	prev, ok := set.Experiments[m.experiment]
	if !ok {
		return fmt.Errorf("experiment %q: %w", m.experiment, ErrNotFound)
	}
	m.prev = prev
	delete(set.Experiments, m.experiment)
	return nil
}

func (m *removeExperiment) Revert(set *OverrideSet) {
	set.Experiments[m.experiment] = m.prev
}

func (m *removeExperiment) Describe() string {
	return fmt.Sprintf("Experiment %q overrides removed", m.experiment)
}

func (m *removeExperiment) Views() View { return ViewExperiments }

// -- Whole document --

type replaceAll struct {
	next    OverrideSet
	prev    OverrideSet
	message string
}

func (m *replaceAll) Apply(set *OverrideSet) error {
	m.prev = *set
	*set = m.next.Clone()
	set.Normalize()
	return nil
}

func (m *replaceAll) Revert(set *OverrideSet) {
	*set = m.prev
}

func (m *replaceAll) Describe() string { return m.message }

func (m *replaceAll) Views() View { return ViewAll }
