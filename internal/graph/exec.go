package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Executor runs a graph on concrete inputs.
type Executor interface {
	Execute(ctx context.Context, g *Graph, inputs []*tensor.Tensor) ([]*tensor.Tensor, error)
}

// Evaluator interprets graphs node by node with the kernels of one device.
type Evaluator struct {
	device string
	logger *slog.Logger
}

type EvaluatorOption func(*Evaluator)

func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator returns an evaluator for device ("cpu", "gpu" or "tpu").
func NewEvaluator(device string, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{device: device, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Evaluator) Device() string { return e.device }

func (e *Evaluator) Execute(ctx context.Context, g *Graph, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := checkInputs(g, inputs); err != nil {
		return nil, err
	}

	vals := make([][]*tensor.Tensor, len(g.nodes))

	for _, n := range g.nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outs, err := e.evalNode(n, vals, inputs)
		if err != nil {
			e.logger.Debug("graph node failed", "graph", g.name, "node", n.id, "op", n.op, "error", err)
			return nil, err
		}

		vals[n.id] = outs
	}

	res := make([]*tensor.Tensor, len(g.outputs))
	for i, o := range g.outputs {
		res[i] = vals[o.id][0]
	}

	return res, nil
}

func (e *Evaluator) evalNode(n *Node, vals [][]*tensor.Tensor, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	switch n.op {
	case OpParameter:
		return single(inputs[n.attrs.Int(AttrIndex)]), nil
	case OpConstant:
		t, _ := ConstantValue(n)
		return single(t), nil
	case OpTupleElement:
		return single(vals[n.inputs[0].id][n.attrs.Int(AttrIndex)]), nil
	}

	if err := checkKernel(n, e.device); err != nil {
		return nil, err
	}

	args := make([]*tensor.Tensor, len(n.inputs))
	for i, in := range n.inputs {
		args[i] = vals[in.id][0]
	}

	return opDefs[n.op].kernel(n.attrs, args)
}

// checkInputs validates concrete inputs against the graph parameters.
func checkInputs(g *Graph, inputs []*tensor.Tensor) error {
	if len(inputs) != len(g.params) {
		return fmt.Errorf("graph: %s expects %d inputs, got %d", g.name, len(g.params), len(inputs))
	}

	for i, p := range g.params {
		want := p.Type()
		if inputs[i] == nil || inputs[i].DType() != want.DType || !tensor.SameShape(inputs[i].Shape(), want.Shape) {
			return fmt.Errorf("graph: %s input %d: want %s, got %s%v", g.name, i, want, inputs[i].DType(), inputs[i].Shape())
		}
	}

	return nil
}
