package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/go-primparity/internal/lax"
)

// DefaultExclusions are primitives deliberately left out of translation.
var DefaultExclusions = []string{"axis_index", "tie_in"}

// Bookkeeping is the translator's record of what it covers.
type Bookkeeping interface {
	Implemented() []*lax.Primitive
	NotYetImplemented() []*lax.Primitive
}

// Coverage is the outcome of an audit.
type Coverage struct {
	Implemented       []string `json:"implemented"`
	NotYetImplemented []string `json:"not_yet_implemented"`
	Excluded          []string `json:"excluded"`
	// Missing are in neither set, Ambiguous in both.
	Missing   []string `json:"missing,omitempty"`
	Ambiguous []string `json:"ambiguous,omitempty"`
}

// Check classifies every primitive of all. Names in excluded are skipped.
func Check(all []*lax.Primitive, tr Bookkeeping, excluded ...string) Coverage {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	impl := set(tr.Implemented())
	nyi := set(tr.NotYetImplemented())

	var c Coverage

	for _, p := range all {
		name := p.Name()

		switch {
		case skip[name]:
			c.Excluded = append(c.Excluded, name)
		case impl[p] && nyi[p]:
			c.Ambiguous = append(c.Ambiguous, name)
		case impl[p]:
			c.Implemented = append(c.Implemented, name)
		case nyi[p]:
			c.NotYetImplemented = append(c.NotYetImplemented, name)
		default:
			c.Missing = append(c.Missing, name)
		}
	}

	for _, s := range [][]string{c.Implemented, c.NotYetImplemented, c.Excluded, c.Missing, c.Ambiguous} {
		sort.Strings(s)
	}

	return c
}

// Audit fails with KindCoverageDrift when a primitive is in neither or both
// of the translator's sets.
func Audit(all []*lax.Primitive, tr Bookkeeping, excluded ...string) error {
	c := Check(all, tr, excluded...)
	if len(c.Missing) == 0 && len(c.Ambiguous) == 0 {
		return nil
	}

	var parts []string
	if len(c.Missing) > 0 {
		parts = append(parts, "unaccounted for: "+strings.Join(c.Missing, ", "))
	}

	if len(c.Ambiguous) > 0 {
		parts = append(parts, "both implemented and not yet implemented: "+strings.Join(c.Ambiguous, ", "))
	}

	return assertf(KindCoverageDrift, "%s", strings.Join(parts, "; "))
}

func set(ps []*lax.Primitive) map[*lax.Primitive]bool {
	m := make(map[*lax.Primitive]bool, len(ps))
	for _, p := range ps {
		m[p] = true
	}

	return m
}

func (c Coverage) String() string {
	return fmt.Sprintf("%d implemented, %d not yet implemented, %d excluded, %d missing, %d ambiguous",
		len(c.Implemented), len(c.NotYetImplemented), len(c.Excluded), len(c.Missing), len(c.Ambiguous))
}
