// File: internal/probe/filter.go
package probe

import (
	"sort"
	"strings"
)

// Keyed is anything listed by name in a snapshot view.
type Keyed interface {
	Key() string
}

// FilterAndSort returns the items whose name contains substring, ignoring
// case, ordered by name. The input slice is never modified and the result
// is a fresh slice, so applying it twice gives the same answer as once.
func FilterAndSort[T Keyed](items []T, substring string) []T {
	needle := strings.ToLower(substring)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Key()), needle) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Filter applies FilterAndSort to both lists of a snapshot.
func (s Snapshot) Filter(substring string) Snapshot {
	return Snapshot{
		Gates:       FilterAndSort(s.Gates, substring),
		Experiments: FilterAndSort(s.Experiments, substring),
	}
}

func sortStrings(s []string) { sort.Strings(s) }
