// Package convert translates lax functions into target graphs.
//
// A function is staged by tracing it with graph-backed tracers: every bound
// primitive is looked up in a Registry and lowered by its Rule into graph
// nodes. The staged graph is then run by a graph.Executor.
package convert

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/lax"
)

var (
	// ErrNotImplemented is raised when staging a primitive that is known to
	// the registry but has no translation yet.
	ErrNotImplemented = errors.New("translation not implemented")
	// ErrNoRule is raised for primitives unknown to the registry.
	ErrNoRule = errors.New("no translation rule")
)

// Rule lowers one primitive application. args are the graph nodes of the
// operands in order; the result is one node per primitive output.
type Rule func(c *Context, params lax.Params, args []*graph.Node) ([]*graph.Node, error)

// Registry records, per primitive, either a rule or a not-yet-implemented
// mark. A primitive is never both.
type Registry struct {
	rules map[*lax.Primitive]Rule
	nyi   map[*lax.Primitive]bool
}

func NewRegistry() *Registry {
	return &Registry{rules: map[*lax.Primitive]Rule{}, nyi: map[*lax.Primitive]bool{}}
}

// Register adds a rule for p. It panics on duplicates.
func (r *Registry) Register(p *lax.Primitive, rule Rule) {
	if _, dup := r.rules[p]; dup || r.nyi[p] {
		panic(fmt.Sprintf("convert: %s registered twice", p))
	}

	r.rules[p] = rule
}

// MarkNotYetImplemented records p as a known primitive without a rule.
func (r *Registry) MarkNotYetImplemented(ps ...*lax.Primitive) {
	for _, p := range ps {
		if _, dup := r.rules[p]; dup || r.nyi[p] {
			panic(fmt.Sprintf("convert: %s registered twice", p))
		}

		r.nyi[p] = true
	}
}

// Lookup returns the rule for p, or an error wrapping ErrNotImplemented or
// ErrNoRule.
func (r *Registry) Lookup(p *lax.Primitive) (Rule, error) {
	if rule, ok := r.rules[p]; ok {
		return rule, nil
	}

	if r.nyi[p] {
		return nil, fmt.Errorf("convert: %s: %w", p, ErrNotImplemented)
	}

	return nil, fmt.Errorf("convert: %s: %w", p, ErrNoRule)
}

// Implemented lists the primitives with a rule, sorted by name.
func (r *Registry) Implemented() []*lax.Primitive {
	out := make([]*lax.Primitive, 0, len(r.rules))
	for p := range r.rules {
		out = append(out, p)
	}

	lax.SortPrimitives(out)

	return out
}

// NotYetImplemented lists the primitives marked without a rule, sorted by name.
func (r *Registry) NotYetImplemented() []*lax.Primitive {
	out := make([]*lax.Primitive, 0, len(r.nyi))
	for p := range r.nyi {
		out = append(out, p)
	}

	lax.SortPrimitives(out)

	return out
}
