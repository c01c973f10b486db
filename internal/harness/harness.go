// Package harness checks that translated primitives compute what the source
// framework computes. A Driver walks Harness descriptors, applies the policy
// each one is subject to on the current device, and asks the Engine to run
// the source and every target mode and compare the results.
package harness

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// ArgsMaker draws the dynamic arguments of one case.
type ArgsMaker func(r *RNG) ([]*tensor.Tensor, error)

// Harness is one test case template. It is immutable once built.
type Harness struct {
	name   string
	group  string
	fn     lax.Func
	params lax.Params
	args   ArgsMaker
}

// New returns a harness. The params map is copied.
func New(group, name string, fn lax.Func, args ArgsMaker, params lax.Params) *Harness {
	cp := make(lax.Params, len(params))
	for k, v := range params {
		cp[k] = v
	}

	return &Harness{name: name, group: group, fn: fn, params: cp, args: args}
}

func (h *Harness) Name() string  { return h.name }
func (h *Harness) Group() string { return h.group }

// FullName is "group/name".
func (h *Harness) FullName() string { return h.group + "/" + h.name }

func (h *Harness) Fn() lax.Func { return h.fn }

// Params returns the static parameters. Callers must not modify them.
func (h *Harness) Params() lax.Params { return h.params }

// Args draws the dynamic arguments from r.
func (h *Harness) Args(r *RNG) ([]*tensor.Tensor, error) {
	if h.args == nil {
		return nil, nil
	}

	return h.args(r)
}

func (h *Harness) String() string { return h.FullName() }

// Select keeps the harnesses whose full name matches pattern. An empty
// pattern keeps everything.
func Select(hs []*Harness, pattern string) ([]*Harness, error) {
	if pattern == "" {
		return hs, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("harness: filter: %w", err)
	}

	var out []*Harness

	for _, h := range hs {
		if re.MatchString(h.FullName()) {
			out = append(out, h)
		}
	}

	return out, nil
}

// Groups returns the distinct group names of hs, sorted.
func Groups(hs []*Harness) []string {
	seen := map[string]bool{}

	var out []string

	for _, h := range hs {
		if !seen[h.group] {
			seen[h.group] = true
			out = append(out, h.group)
		}
	}

	sort.Strings(out)

	return out
}
