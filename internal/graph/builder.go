package graph

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Builder assembles a Graph. Nodes are appended in topological order since
// every input must exist before it is used.
type Builder struct {
	g     *Graph
	built bool
}

func NewBuilder(name string) *Builder {
	return &Builder{g: &Graph{name: name}}
}

func (b *Builder) add(op string, attrs Attrs, inputs []*Node, types []Type) *Node {
	n := &Node{id: len(b.g.nodes), op: op, inputs: inputs, attrs: attrs, types: types}
	b.g.nodes = append(b.g.nodes, n)

	return n
}

// Parameter appends the next graph input.
func (b *Builder) Parameter(t Type) *Node {
	n := b.add(OpParameter, Attrs{AttrIndex: int64(len(b.g.params))}, nil, []Type{t})
	b.g.params = append(b.g.params, n)

	return n
}

// Constant embeds a literal tensor.
func (b *Builder) Constant(t *tensor.Tensor) *Node {
	return b.add(OpConstant, Attrs{AttrValue: t}, nil, []Type{{DType: t.DType(), Shape: t.Shape()}})
}

// ConstantValue returns the literal of a Constant node.
func ConstantValue(n *Node) (*tensor.Tensor, bool) {
	if n.op != OpConstant {
		return nil, false
	}

	t, ok := n.attrs[AttrValue].(*tensor.Tensor)

	return t, ok
}

func (b *Builder) checkInputs(op string, inputs []*Node) error {
	if b.built {
		return fmt.Errorf("graph: %s: builder already finished", op)
	}

	for i, in := range inputs {
		if in == nil {
			return fmt.Errorf("graph: %s: input %d is nil", op, i)
		}

		if in.id >= len(b.g.nodes) || b.g.nodes[in.id] != in {
			return fmt.Errorf("graph: %s: input %d belongs to another graph", op, i)
		}

		if in.IsTuple() {
			return fmt.Errorf("graph: %s: input %d is a tuple; use its elements", op, i)
		}
	}

	return nil
}

// Op appends a single-output op.
func (b *Builder) Op(op string, attrs Attrs, inputs ...*Node) (*Node, error) {
	outs, err := b.MultiOp(op, attrs, inputs...)
	if err != nil {
		return nil, err
	}

	if len(outs) != 1 {
		return nil, fmt.Errorf("graph: %s has %d outputs; use MultiOp", op, len(outs))
	}

	return outs[0], nil
}

// MultiOp appends op and returns one node per output. Ops with several
// outputs get a tuple node plus one TupleElement per output.
func (b *Builder) MultiOp(op string, attrs Attrs, inputs ...*Node) ([]*Node, error) {
	def, ok := opDefs[op]
	if !ok {
		return nil, fmt.Errorf("graph: unknown op %q", op)
	}

	if err := b.checkInputs(op, inputs); err != nil {
		return nil, err
	}

	if def.arity >= 0 && len(inputs) != def.arity {
		return nil, invalidf(op, "expected %d inputs, got %d", def.arity, len(inputs))
	}

	if attrs == nil {
		attrs = Attrs{}
	}

	in := make([]Type, len(inputs))
	for i, x := range inputs {
		in[i] = x.Type()
	}

	types, err := def.infer(op, attrs, in)
	if err != nil {
		return nil, err
	}

	n := b.add(op, attrs, inputs, types)
	if len(types) == 1 {
		return []*Node{n}, nil
	}

	elems := make([]*Node, len(types))
	for i, t := range types {
		elems[i] = b.add(OpTupleElement, Attrs{AttrIndex: int64(i)}, []*Node{n}, []Type{t})
	}

	return elems, nil
}

// Build finishes the graph with the given outputs.
func (b *Builder) Build(outputs ...*Node) (*Graph, error) {
	if b.built {
		return nil, errors.New("graph: builder already finished")
	}

	if err := b.checkInputs("build", outputs); err != nil {
		return nil, err
	}

	b.built = true
	b.g.outputs = outputs

	return b.g, nil
}
