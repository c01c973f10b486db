package convert

import (
	"fmt"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// tracer stands for one graph node while a function is staged.
type tracer struct {
	tr   *trace
	node *graph.Node
}

func (t *tracer) DType() dtype.DType { return t.node.DType() }
func (t *tracer) Shape() []int64     { return t.node.Shape() }
func (t *tracer) Trace() lax.Trace   { return t.tr }

type trace struct {
	reg *Registry
	b   *graph.Builder
}

// Context is handed to rules. It exposes the builder of the graph being
// staged and inlining of sub-computations.
type Context struct {
	B  *graph.Builder
	tr *trace
}

// Process lowers p applied to args into the graph under construction.
func (tr *trace) Process(p *lax.Primitive, params lax.Params, args []lax.Value) ([]lax.Value, error) {
	rule, err := tr.reg.Lookup(p)
	if err != nil {
		return nil, err
	}

	nodes, err := tr.nodes(args)
	if err != nil {
		return nil, fmt.Errorf("convert: %s: %w", p, err)
	}

	if params == nil {
		params = lax.Params{}
	}

	outs, err := rule(&Context{B: tr.b, tr: tr}, params, nodes)
	if err != nil {
		return nil, fmt.Errorf("convert: %s: %w", p, err)
	}

	return tr.values(outs), nil
}

// nodes maps operands to graph nodes; concrete tensors become constants.
func (tr *trace) nodes(vals []lax.Value) ([]*graph.Node, error) {
	out := make([]*graph.Node, len(vals))

	for i, v := range vals {
		switch v := v.(type) {
		case *tracer:
			if v.tr != tr {
				return nil, fmt.Errorf("operand %d belongs to another trace", i)
			}

			out[i] = v.node
		case *tensor.Tensor:
			if v == nil {
				return nil, fmt.Errorf("operand %d is nil", i)
			}

			out[i] = tr.b.Constant(v)
		default:
			return nil, fmt.Errorf("operand %d has unsupported type %T", i, v)
		}
	}

	return out, nil
}

func (tr *trace) values(nodes []*graph.Node) []lax.Value {
	out := make([]lax.Value, len(nodes))
	for i, n := range nodes {
		out[i] = &tracer{tr: tr, node: n}
	}

	return out
}

// Inline traces fn on args into the current graph.
func (c *Context) Inline(fn lax.Func, args []*graph.Node) ([]*graph.Node, error) {
	if fn == nil {
		return nil, fmt.Errorf("missing sub-computation")
	}

	outs, err := fn(c.tr.values(args)...)
	if err != nil {
		return nil, err
	}

	return c.tr.nodes(outs)
}
