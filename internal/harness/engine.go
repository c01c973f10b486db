package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Mode is one way of executing translated functions.
type Mode struct {
	Name    string
	Convert func(fn lax.Func) convert.Func
	// Strict modes are the ones policies speak about: under an expected
	// target error they must fail. Non-strict modes are then not run.
	Strict bool
	// Ignore reports errors meaning "this mode cannot run the case"; such
	// a mode drops out of the comparison.
	Ignore func(err error) bool
}

// ConverterMode runs functions through c.
func ConverterMode(name string, c *convert.Converter, strict bool, ignore func(error) bool) Mode {
	return Mode{Name: name, Convert: c.Convert, Strict: strict, Ignore: ignore}
}

// GraphMode runs staged graphs on the evaluator of device.
func GraphMode(device string, reg *convert.Registry) Mode {
	c := convert.New(graph.NewEvaluator(device), convert.WithRegistry(reg))
	return ConverterMode("graph", c, true, nil)
}

// OptimizedMode is GraphMode after graph.Optimize.
func OptimizedMode(device string, reg *convert.Registry) Mode {
	c := convert.New(graph.NewEvaluator(device), convert.WithRegistry(reg), convert.WithOptimize(true))
	return ConverterMode("optimized", c, true, nil)
}

// Engine compares source executions against every configured mode. It keeps
// no state between calls.
type Engine struct {
	modes  []Mode
	logger *slog.Logger
}

type EngineOption func(*Engine)

func WithModes(modes ...Mode) EngineOption {
	return func(e *Engine) { e.modes = append(e.modes, modes...) }
}

func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// DefaultModes are the graph and optimized modes of device.
func DefaultModes(device string, reg *convert.Registry) []Mode {
	return []Mode{GraphMode(device, reg), OptimizedMode(device, reg)}
}

// NewEngine returns an engine with the given modes. Without WithModes it
// runs DefaultModes on the cpu with convert.Default.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	if len(e.modes) == 0 {
		e.modes = DefaultModes("cpu", convert.Default)
	}

	return e
}

func (e *Engine) Modes() []Mode { return e.modes }

// Comparator checks target against source for args. It must not modify its
// inputs.
type Comparator func(args, source, target []*tensor.Tensor, tol Tolerance) error

type compareConfig struct {
	tol          Tolerance
	expectTarget bool
	pattern      *regexp.Regexp
	comparator   Comparator
	always       bool
}

type CompareOption func(*compareConfig) error

func WithAtol(atol float64) CompareOption {
	return func(c *compareConfig) error { c.tol.Atol = atol; return nil }
}

func WithRtol(rtol float64) CompareOption {
	return func(c *compareConfig) error { c.tol.Rtol = rtol; return nil }
}

func WithTolerance(t Tolerance) CompareOption {
	return func(c *compareConfig) error { c.tol = t; return nil }
}

// WithExpectedTargetError declares that every strict mode fails. A non-empty
// pattern must match the error text.
func WithExpectedTargetError(pattern string) CompareOption {
	return func(c *compareConfig) error {
		c.expectTarget = true

		if pattern == "" {
			return nil
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("harness: target error pattern: %w", err)
		}

		c.pattern = re

		return nil
	}
}

// WithComparator installs a custom comparator. When always is false it only
// runs after the generic closeness check failed.
func WithComparator(cmp Comparator, always bool) CompareOption {
	return func(c *compareConfig) error {
		c.comparator, c.always = cmp, always
		return nil
	}
}

// Compare runs fn on args in the source framework and in every mode.
// A source failure is returned as *ReferenceError with VerdictFail.
func (e *Engine) Compare(ctx context.Context, fn lax.Func, args []*tensor.Tensor, opts ...CompareOption) (Verdict, error) {
	var cfg compareConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return VerdictFail, err
		}
	}

	source, err := lax.Call(fn, args...)
	if err != nil {
		return VerdictFail, &ReferenceError{Err: err}
	}

	in := make([]any, len(args))
	for i, a := range args {
		in[i] = a
	}

	for _, m := range e.modes {
		if cfg.expectTarget && !m.Strict {
			continue
		}

		target, err := m.Convert(fn)(ctx, in...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return VerdictFail, ctxErr
		}

		if cfg.expectTarget {
			if err := checkTargetError(m, err, cfg.pattern); err != nil {
				return VerdictFail, err
			}

			e.logger.Debug("expected target error", "mode", m.Name, "error", err)

			continue
		}

		if err != nil {
			if m.Ignore != nil && m.Ignore(err) {
				e.logger.Debug("mode cannot run case", "mode", m.Name, "error", err)
				continue
			}

			return VerdictFail, &AssertionError{Kind: KindUnexpectedTargetError, Mode: m.Name, Leaf: -1, Err: err}
		}

		if err := compareOutputs(args, source, target, cfg); err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) && ae.Mode == "" {
				ae.Mode = m.Name
			}

			return VerdictFail, err
		}
	}

	if cfg.expectTarget {
		return VerdictExpectedDivergence, nil
	}

	return VerdictPass, nil
}

func checkTargetError(m Mode, err error, pattern *regexp.Regexp) error {
	if err == nil {
		return &AssertionError{
			Kind: KindStaleExpectation,
			Mode: m.Name,
			Leaf: -1,
			Msg:  "target was expected to fail but succeeded",
		}
	}

	if pattern != nil && !pattern.MatchString(err.Error()) {
		return &AssertionError{
			Kind: KindTargetErrorMismatch,
			Mode: m.Name,
			Leaf: -1,
			Msg:  fmt.Sprintf("error does not match %q", pattern),
			Err:  err,
		}
	}

	return nil
}

func compareOutputs(args, source, target []*tensor.Tensor, cfg compareConfig) error {
	if cfg.comparator != nil && cfg.always {
		return cfg.comparator(args, source, target, cfg.tol)
	}

	err := AllClose(source, target, cfg.tol)
	if err == nil || cfg.comparator == nil {
		return err
	}

	// Structural mismatches are never rescued.
	if IsKind(err, KindStructureMismatch) || IsKind(err, KindShapeMismatch) || IsKind(err, KindDTypeMismatch) {
		return err
	}

	return cfg.comparator(args, source, target, cfg.tol)
}
