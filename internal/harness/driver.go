package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Result is the outcome of one case.
type Result struct {
	Name     string        `json:"name"`
	Group    string        `json:"group"`
	Device   string        `json:"device"`
	Policy   string        `json:"policy"`
	Verdict  Verdict       `json:"verdict"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

// Driver runs harnesses one after the other on one device.
type Driver struct {
	Engine   *Engine
	Policies PolicyTable
	Device   string
	// RNG defaults to DefaultRNG.
	RNG       *RNG
	Logger    *slog.Logger
	Overrides []Override
}

func (d *Driver) rng() *RNG {
	if d.RNG != nil {
		return d.RNG
	}

	return DefaultRNG
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}

func (d *Driver) device() string {
	if d.Device != "" {
		return d.Device
	}

	return "cpu"
}

// PolicyFor returns the policy for h: the first matching override, else the
// table rule.
func (d *Driver) PolicyFor(h *Harness) Policy {
	for i := range d.Overrides {
		if d.Overrides[i].Matches(h, d.device()) {
			return d.Overrides[i].Policy()
		}
	}

	return d.Policies.Lookup(h, d.device())
}

// RunCase runs one harness to completion.
func (d *Driver) RunCase(ctx context.Context, h *Harness) Result {
	start := time.Now()
	policy := d.PolicyFor(h)

	res := Result{Name: h.Name(), Group: h.Group(), Device: d.device(), Policy: policy.String()}
	res.Verdict, res.Reason, res.Err = d.run(ctx, h, policy)
	res.Duration = time.Since(start)

	if res.Err != nil {
		res.Error = res.Err.Error()
	}

	log := d.logger()
	log.Debug("case finished", "case", h.FullName(), "verdict", res.Verdict.String(), "duration", res.Duration)

	if IsKind(res.Err, KindStaleExpectation) {
		log.Warn("stale expectation", "case", h.FullName(), "policy", res.Policy, "error", res.Error)
	}

	return res
}

func (d *Driver) run(ctx context.Context, h *Harness, policy Policy) (Verdict, string, error) {
	if p, ok := policy.(Skip); ok {
		return VerdictSkip, p.Reason, nil
	}

	if err := lax.SetDevice(d.device()); err != nil {
		return VerdictFail, "", err
	}

	args, err := h.Args(d.rng())
	if err != nil {
		return VerdictFail, "", &ReferenceError{Err: fmt.Errorf("arguments: %w", err)}
	}

	engine := d.Engine
	if engine == nil {
		engine = NewEngine(WithModes(DefaultModes(d.device(), nil)...))
	}

	switch p := policy.(type) {
	case Proceed:
		opts := []CompareOption{WithTolerance(Tolerance{Atol: p.Atol, Rtol: p.Rtol})}
		if p.Comparator != nil {
			opts = append(opts, WithComparator(p.Comparator, p.AlwaysCustom))
		}

		v, err := engine.Compare(ctx, h.Fn(), args, opts...)

		return v, "", err
	case ExpectSourceError:
		v, err := checkSourceError(h, args, p)
		return v, p.String(), err
	case ExpectTargetError:
		v, err := engine.Compare(ctx, h.Fn(), args, WithExpectedTargetError(p.Pattern))
		return v, p.String(), err
	case ExpectTargetErrorWithNormalSourceResult:
		v, err := engine.Compare(ctx, h.Fn(), args, WithExpectedTargetError(""))
		return v, p.Reason, err
	default:
		return VerdictFail, "", fmt.Errorf("harness: unknown policy %T", policy)
	}
}

func checkSourceError(h *Harness, args []*tensor.Tensor, p ExpectSourceError) (Verdict, error) {
	_, err := lax.Call(h.Fn(), args...)
	if err == nil {
		return VerdictFail, assertf(KindMissingSourceError, "source was expected to fail with %v", p.Kind)
	}

	if p.Kind != nil && !errors.Is(err, p.Kind) {
		e := assertf(KindSourceErrorMismatch, "want error class %v", p.Kind)
		e.Err = err

		return VerdictFail, e
	}

	if p.Pattern != "" {
		re, rerr := regexp.Compile(p.Pattern)
		if rerr != nil {
			return VerdictFail, fmt.Errorf("harness: source error pattern: %w", rerr)
		}

		if !re.MatchString(err.Error()) {
			e := assertf(KindSourceErrorMismatch, "error does not match %q", p.Pattern)
			e.Err = err

			return VerdictFail, e
		}
	}

	return VerdictExpectedDivergence, nil
}

// Run runs hs in order, calling onResult after each case when set. It stops
// early only when ctx is done.
func (d *Driver) Run(ctx context.Context, hs []*Harness, onResult func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(hs))

	for _, h := range hs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r := d.RunCase(ctx, h)
		results = append(results, r)

		if onResult != nil {
			onResult(r)
		}
	}

	return results, nil
}
