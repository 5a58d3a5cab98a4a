package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidBinding is returned when a landmark binding cannot be built.
var ErrInvalidBinding = errors.New("invalid landmark binding")

// Assignment binds one landmark display name to a tracked column prefix.
type Assignment struct {
	Landmark string `json:"landmark"`
	Prefix   string `json:"prefix"`
}

// Binding maps landmarks onto tracked column prefixes. It is validated once at
// construction and never changes afterwards.
type Binding struct {
	prefixes map[Landmark]string
}

// NewBinding validates assignments against table. Unknown landmark names,
// a landmark assigned twice, and prefixes the table does not track are all
// reported together. An empty prefix leaves the landmark unbound.
// A nil table skips the prefix check.
func NewBinding(assignments []Assignment, table *Table) (*Binding, error) {
	b := &Binding{prefixes: make(map[Landmark]string)}
	var errs []error
	for _, a := range assignments {
		l, err := ParseLandmark(a.Landmark)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		prefix := strings.TrimSpace(a.Prefix)
		if prefix == "" {
			continue
		}
		if prev, dup := b.prefixes[l]; dup {
			errs = append(errs, fmt.Errorf("%s bound twice (%q and %q)", l, prev, prefix))
			continue
		}
		if table != nil && !table.Has(prefix) {
			errs = append(errs, fmt.Errorf("%s: column prefix %q not found in table", l, prefix))
			continue
		}
		b.prefixes[l] = prefix
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBinding, errors.Join(errs...))
	}
	return b, nil
}

// ParseBindingJSON decodes a {"Landmark Name": "prefix"} object and validates
// it against table. Assignments are applied in sorted key order so error
// messages are stable.
func ParseBindingJSON(data []byte, table *Table) (*Binding, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	return NewBinding(AssignmentsFromMap(m), table)
}

// AssignmentsFromMap converts a name→prefix map to assignments in sorted
// landmark-name order.
func AssignmentsFromMap(m map[string]string) []Assignment {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Assignment, 0, len(keys))
	for _, k := range keys {
		out = append(out, Assignment{Landmark: k, Prefix: m[k]})
	}
	return out
}

// Prefix returns the column prefix bound to l.
func (b *Binding) Prefix(l Landmark) (string, bool) {
	if b == nil {
		return "", false
	}
	p, ok := b.prefixes[l]
	return p, ok
}

// Len returns the number of bound landmarks.
func (b *Binding) Len() int {
	if b == nil {
		return 0
	}
	return len(b.prefixes)
}

// Map returns a copy of the binding keyed by landmark display name.
func (b *Binding) Map() map[string]string {
	out := make(map[string]string, b.Len())
	if b == nil {
		return out
	}
	for l, p := range b.prefixes {
		out[l.String()] = p
	}
	return out
}
