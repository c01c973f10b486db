package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Func is a converted function. Arguments may be tensors, Go scalars or
// (nested) slices of them.
type Func func(ctx context.Context, args ...any) ([]*tensor.Tensor, error)

// Converter stages lax functions and runs the staged graphs.
type Converter struct {
	registry *Registry
	executor graph.Executor
	optimize bool
	device   string
	logger   *slog.Logger
}

type Option func(*Converter)

// WithRegistry replaces the Default registry.
func WithRegistry(r *Registry) Option {
	return func(c *Converter) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithOptimize runs graph.Optimize on every staged graph.
func WithOptimize(on bool) Option {
	return func(c *Converter) { c.optimize = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a converter running graphs on exec. When exec reports a
// device, optimization folds constants with that device's kernels.
func New(exec graph.Executor, opts ...Option) *Converter {
	c := &Converter{registry: Default, executor: exec, device: "cpu", logger: slog.Default()}
	if d, ok := exec.(interface{ Device() string }); ok {
		c.device = d.Device()
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Converter) Registry() *Registry { return c.registry }

// Stage traces fn on abstract arguments and returns the graph.
func (c *Converter) Stage(name string, fn lax.Func, avals []lax.Aval) (*graph.Graph, error) {
	tr := &trace{reg: c.registry, b: graph.NewBuilder(name)}

	params := make([]*graph.Node, len(avals))
	for i, a := range avals {
		params[i] = tr.b.Parameter(graph.Type{DType: a.DType, Shape: a.Shape})
	}

	outs, err := fn(tr.values(params)...)
	if err != nil {
		return nil, err
	}

	nodes, err := tr.nodes(outs)
	if err != nil {
		return nil, fmt.Errorf("convert: result: %w", err)
	}

	g, err := tr.b.Build(nodes...)
	if err != nil {
		return nil, err
	}

	if !c.optimize {
		return g, nil
	}

	og, stats, err := graph.Optimize(g, c.device)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("graph optimized", "graph", name, "folded", stats.Folded,
		"deduplicated", stats.Deduplicated, "removed", stats.Removed)

	return og, nil
}

// Convert returns the staged-and-executed counterpart of fn. Each call
// stages fn for the argument types it receives.
func (c *Converter) Convert(fn lax.Func) Func {
	return func(ctx context.Context, args ...any) ([]*tensor.Tensor, error) {
		inputs, avals, err := adapt(args)
		if err != nil {
			return nil, err
		}

		g, err := c.Stage("converted", fn, avals)
		if err != nil {
			return nil, err
		}

		return c.executor.Execute(ctx, g, inputs)
	}
}

func adapt(args []any) ([]*tensor.Tensor, []lax.Aval, error) {
	inputs := make([]*tensor.Tensor, len(args))
	avals := make([]lax.Aval, len(args))

	for i, a := range args {
		t, err := tensor.FromValue(a)
		if err != nil {
			return nil, nil, fmt.Errorf("convert: argument %d: %w", i, err)
		}

		inputs[i] = t
		avals[i] = lax.AvalOf(t)
	}

	return inputs, avals, nil
}
