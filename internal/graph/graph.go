// Package graph is the target framework: a staged dataflow graph with its own
// op vocabulary, shape inference, kernel-support matrix and evaluator.
//
// Graphs are built once with a Builder and are immutable afterwards. Kernels
// follow the target conventions, which differ from the lax source kernels
// at a few undefined inputs (poles, out-of-domain arguments) and in the sign
// of decomposition factors.
package graph

import (
	"fmt"
	"strings"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// Type is the static type of a node output.
type Type struct {
	DType dtype.DType
	Shape []int64
}

func (t Type) String() string {
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = fmt.Sprint(d)
	}

	return fmt.Sprintf("%s[%s]", t.DType, strings.Join(dims, ","))
}

// Attrs are static node attributes.
type Attrs map[string]any

func (a Attrs) Int(key string) int64 {
	switch v := a[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func (a Attrs) Ints(key string) []int64 {
	v, _ := a[key].([]int64)
	return v
}

func (a Attrs) Axes(key string) []int {
	ints := a.Ints(key)
	out := make([]int, len(ints))

	for i, x := range ints {
		out[i] = int(x)
	}

	return out
}

func (a Attrs) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

func (a Attrs) Str(key string) string {
	v, _ := a[key].(string)
	return v
}

func (a Attrs) DType(key string) dtype.DType {
	v, _ := a[key].(dtype.DType)
	return v
}

// Node is one operation. Multi-output ops produce a tuple node whose
// elements are read through TupleElement nodes.
type Node struct {
	id     int
	op     string
	inputs []*Node
	attrs  Attrs
	types  []Type
}

func (n *Node) ID() int            { return n.id }
func (n *Node) Op() string         { return n.op }
func (n *Node) Inputs() []*Node    { return n.inputs }
func (n *Node) Attrs() Attrs       { return n.attrs }
func (n *Node) NumOutputs() int    { return len(n.types) }
func (n *Node) Types() []Type      { return n.types }
func (n *Node) IsTuple() bool      { return len(n.types) != 1 }
func (n *Node) DType() dtype.DType { return n.Type().DType }
func (n *Node) Shape() []int64     { return n.Type().Shape }

// Type returns the output type of a single-output node.
func (n *Node) Type() Type {
	if len(n.types) != 1 {
		return Type{}
	}

	return n.types[0]
}

func (n *Node) String() string {
	ins := make([]string, len(n.inputs))
	for i, in := range n.inputs {
		ins[i] = fmt.Sprintf("%%%d", in.id)
	}

	outs := make([]string, len(n.types))
	for i, t := range n.types {
		outs[i] = t.String()
	}

	s := fmt.Sprintf("%%%d = %s(%s) : %s", n.id, n.op, strings.Join(ins, ", "), strings.Join(outs, ", "))
	if keys := attrKeys(n.attrs); len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if k == AttrValue {
				continue
			}

			parts = append(parts, fmt.Sprintf("%s=%v", k, n.attrs[k]))
		}

		if len(parts) > 0 {
			s += " {" + strings.Join(parts, ", ") + "}"
		}
	}

	return s
}

// Graph is an immutable, topologically ordered list of nodes.
type Graph struct {
	name    string
	nodes   []*Node
	params  []*Node
	outputs []*Node
}

func (g *Graph) Name() string        { return g.name }
func (g *Graph) Nodes() []*Node      { return g.nodes }
func (g *Graph) Parameters() []*Node { return g.params }
func (g *Graph) Outputs() []*Node    { return g.outputs }

// OutputTypes lists the graph result types.
func (g *Graph) OutputTypes() []Type {
	out := make([]Type, len(g.outputs))
	for i, o := range g.outputs {
		out[i] = o.Type()
	}

	return out
}

// Ops counts nodes per op name.
func (g *Graph) Ops() map[string]int {
	out := map[string]int{}
	for _, n := range g.nodes {
		out[n.op]++
	}

	return out
}

func (g *Graph) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "graph %s {\n", g.name)

	for _, n := range g.nodes {
		fmt.Fprintf(&sb, "  %s\n", n)
	}

	outs := make([]string, len(g.outputs))
	for i, o := range g.outputs {
		outs[i] = fmt.Sprintf("%%%d", o.id)
	}

	fmt.Fprintf(&sb, "  return %s\n}\n", strings.Join(outs, ", "))

	return sb.String()
}
