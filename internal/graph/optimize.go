package graph

import (
	"fmt"
	"strings"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Stats counts the rewrites of one Optimize call.
type Stats struct {
	Folded       int
	Deduplicated int
	Removed      int
}

// Optimize returns an equivalent graph after constant folding, common
// subexpression elimination and dead node elimination. Folding uses the
// kernels of device and leaves nodes that would fail at run time in place,
// so the optimized graph raises the same errors as the original.
func Optimize(g *Graph, device string) (*Graph, Stats, error) {
	var stats Stats

	live := liveNodes(g)
	b := NewBuilder(g.name)
	mapped := make([]*Node, len(g.nodes))
	elems := make([][]*Node, len(g.nodes))
	seen := map[string]*Node{}
	seenTuple := map[string][]*Node{}

	for _, n := range g.nodes {
		switch {
		case n.op == OpParameter:
			mapped[n.id] = b.Parameter(n.Type())
			continue
		case !live[n.id]:
			stats.Removed++
			continue
		case n.op == OpTupleElement:
			mapped[n.id] = elems[n.inputs[0].id][n.attrs.Int(AttrIndex)]
			continue
		}

		inputs := make([]*Node, len(n.inputs))
		for i, in := range n.inputs {
			inputs[i] = mapped[in.id]
		}

		if n.op == OpConstant {
			key := constKey(n)
			if prev, ok := seen[key]; ok {
				mapped[n.id] = prev
				stats.Deduplicated++

				continue
			}

			t, _ := ConstantValue(n)
			mapped[n.id] = b.Constant(t)
			seen[key] = mapped[n.id]

			continue
		}

		if folded, ok := fold(n, inputs, device); ok {
			outs := make([]*Node, len(folded))
			for i, t := range folded {
				outs[i] = b.Constant(t)
			}

			stats.Folded++
			assign(n, outs, mapped, elems)

			continue
		}

		key := nodeKey(n.op, n.attrs, inputs)
		if n.IsTuple() {
			if prev, ok := seenTuple[key]; ok {
				elems[n.id] = prev
				stats.Deduplicated++

				continue
			}
		} else if prev, ok := seen[key]; ok {
			mapped[n.id] = prev
			stats.Deduplicated++

			continue
		}

		outs, err := b.MultiOp(n.op, n.attrs, inputs...)
		if err != nil {
			return nil, stats, fmt.Errorf("graph: optimize %s: %w", g.name, err)
		}

		assign(n, outs, mapped, elems)

		if n.IsTuple() {
			seenTuple[key] = outs
		} else {
			seen[key] = outs[0]
		}
	}

	outputs := make([]*Node, len(g.outputs))
	for i, o := range g.outputs {
		outputs[i] = mapped[o.id]
	}

	og, err := b.Build(outputs...)
	if err != nil {
		return nil, stats, err
	}

	return og, stats, nil
}

func assign(n *Node, outs []*Node, mapped []*Node, elems [][]*Node) {
	if n.IsTuple() {
		elems[n.id] = outs
		return
	}

	mapped[n.id] = outs[0]
}

// fold evaluates n when every input is a constant and its kernel succeeds.
func fold(n *Node, inputs []*Node, device string) ([]*tensor.Tensor, bool) {
	args := make([]*tensor.Tensor, len(inputs))

	for i, in := range inputs {
		t, ok := ConstantValue(in)
		if !ok {
			return nil, false
		}

		args[i] = t
	}

	candidate := &Node{op: n.op, inputs: inputs, attrs: n.attrs, types: n.types}
	if checkKernel(candidate, device) != nil {
		return nil, false
	}

	outs, err := opDefs[n.op].kernel(n.attrs, args)
	if err != nil {
		return nil, false
	}

	return outs, true
}

func liveNodes(g *Graph) []bool {
	live := make([]bool, len(g.nodes))

	var mark func(n *Node)
	mark = func(n *Node) {
		if live[n.id] {
			return
		}

		live[n.id] = true
		for _, in := range n.inputs {
			mark(in)
		}
	}

	for _, o := range g.outputs {
		mark(o)
	}

	return live
}

func nodeKey(op string, attrs Attrs, inputs []*Node) string {
	var sb strings.Builder

	sb.WriteString(op)

	for _, k := range attrKeys(attrs) {
		fmt.Fprintf(&sb, "|%s=%v", k, attrs[k])
	}

	for _, in := range inputs {
		fmt.Fprintf(&sb, "|%%%d", in.id)
	}

	return sb.String()
}

func constKey(n *Node) string {
	t, _ := ConstantValue(n)
	if t.Wide() {
		return fmt.Sprintf("const|%s|%v|%v", t.DType(), t.Shape(), t.RawBits())
	}

	return fmt.Sprintf("const|%s|%v|%v", t.DType(), t.Shape(), t.RawData())
}
