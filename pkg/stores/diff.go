package stores

import (
	"fmt"
	"reflect"
	"sort"
)

// ChangeKind classifies one difference between two snapshots.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// Change is one difference between two snapshots. An empty Attribute means
// the whole feature was added or removed.
type Change struct {
	Kind      ChangeKind `json:"kind" yaml:"kind"`
	Feature   string     `json:"feature" yaml:"feature"`
	Attribute string     `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Old       any        `json:"old,omitempty" yaml:"old,omitempty"`
	New       any        `json:"new,omitempty" yaml:"new,omitempty"`
}

func (c Change) String() string {
	switch {
	case c.Attribute == "":
		return fmt.Sprintf("%s %s", c.Kind, c.Feature)
	case c.Kind == ChangeChanged:
		return fmt.Sprintf("%s %s.%s: %v -> %v", c.Kind, c.Feature, c.Attribute, c.Old, c.New)
	default:
		return fmt.Sprintf("%s %s.%s", c.Kind, c.Feature, c.Attribute)
	}
}

// Diff lists what changed from a to b, ordered by feature then attribute.
func Diff(a, b *Snapshot) []Change {
	var changes []Change

	for _, feature := range unionKeys(a.Records, b.Records) {
		oldAttrs, inOld := a.Records[feature]
		newAttrs, inNew := b.Records[feature]

		switch {
		case !inOld:
			changes = append(changes, Change{Kind: ChangeAdded, Feature: feature})
			continue
		case !inNew:
			changes = append(changes, Change{Kind: ChangeRemoved, Feature: feature})
			continue
		}

		for _, attr := range unionKeys(oldAttrs, newAttrs) {
			oldVal, hadOld := oldAttrs[attr]
			newVal, hasNew := newAttrs[attr]
			switch {
			case !hadOld:
				changes = append(changes, Change{Kind: ChangeAdded, Feature: feature, Attribute: attr, New: newVal})
			case !hasNew:
				changes = append(changes, Change{Kind: ChangeRemoved, Feature: feature, Attribute: attr, Old: oldVal})
			case !reflect.DeepEqual(oldVal, newVal):
				changes = append(changes, Change{Kind: ChangeChanged, Feature: feature, Attribute: attr, Old: oldVal, New: newVal})
			}
		}
	}

	return changes
}

func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
