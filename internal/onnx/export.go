package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/example/go-primparity/internal/graph"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Opset is the default-domain opset the exporter targets.
const Opset = 13

const irVersion = 8

// ErrUnsupported is wrapped by every export or execution failure caused by a
// graph the ONNX path cannot represent.
var ErrUnsupported = errors.New("onnx: unsupported")

// ExportError names the node that could not be exported.
type ExportError struct {
	Op     string
	Reason string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("onnx: cannot export %s: %s", e.Op, e.Reason)
}

func (e *ExportError) Unwrap() error { return ErrUnsupported }

// ONNX TensorProto.DataType values.
var elemTypes = map[dtype.DType]int64{
	dtype.Float32:  1,
	dtype.Uint8:    2,
	dtype.Int8:     3,
	dtype.Uint16:   4,
	dtype.Int16:    5,
	dtype.Int32:    6,
	dtype.Int64:    7,
	dtype.Bool:     9,
	dtype.Float16:  10,
	dtype.Float64:  11,
	dtype.Uint32:   12,
	dtype.Uint64:   13,
	dtype.BFloat16: 16,
}

// direct lists ops with an ONNX operator of identical semantics.
var direct = map[string]string{
	graph.OpNeg:            "Neg",
	graph.OpSign:           "Sign",
	graph.OpFloor:          "Floor",
	graph.OpCeil:           "Ceil",
	graph.OpRound:          "Round",
	graph.OpExp:            "Exp",
	graph.OpLog:            "Log",
	graph.OpTanh:           "Tanh",
	graph.OpSigmoid:        "Sigmoid",
	graph.OpSin:            "Sin",
	graph.OpCos:            "Cos",
	graph.OpAtan:           "Atan",
	graph.OpAsinh:          "Asinh",
	graph.OpAcosh:          "Acosh",
	graph.OpAtanh:          "Atanh",
	graph.OpSqrt:           "Sqrt",
	graph.OpAbs:            "Abs",
	graph.OpErf:            "Erf",
	graph.OpIdentity:       "Identity",
	graph.OpAdd:            "Add",
	graph.OpSub:            "Sub",
	graph.OpMul:            "Mul",
	graph.OpDiv:            "Div",
	graph.OpPow:            "Pow",
	graph.OpMax:            "Max",
	graph.OpMin:            "Min",
	graph.OpEqual:          "Equal",
	graph.OpLess:           "Less",
	graph.OpLessOrEqual:    "LessOrEqual",
	graph.OpGreater:        "Greater",
	graph.OpGreaterOrEqual: "GreaterOrEqual",
	graph.OpMatMul:         "MatMul",
}

// boolOnly lists bitwise ops that ONNX offers for bool operands only.
var boolOnly = map[string]string{
	graph.OpBitwiseAnd: "And",
	graph.OpBitwiseOr:  "Or",
	graph.OpBitwiseXor: "Xor",
	graph.OpBitwiseNot: "Not",
}

// Export encodes g as a serialized ONNX ModelProto. Parameters become graph
// inputs input_0..N and results become outputs output_0..M.
func Export(g *graph.Graph) ([]byte, error) {
	e := &exporter{}

	for _, n := range g.Nodes() {
		if err := e.node(n); err != nil {
			return nil, err
		}
	}

	// Outputs get their own Identity so that repeated or pass-through results
	// still have distinct names.
	outputs := make([][]byte, len(g.Outputs()))

	for i, o := range g.Outputs() {
		name := outputName(i)
		e.emit("Identity", []string{valueName(o)}, []string{name})

		vi, err := valueInfo(name, o.Type())
		if err != nil {
			return nil, err
		}

		outputs[i] = vi
	}

	var gp []byte

	for _, n := range e.nodes {
		gp = appendMessage(gp, 1, n)
	}

	gp = appendString(gp, 2, g.Name())

	for _, t := range e.inits {
		gp = appendMessage(gp, 5, t)
	}

	for i, p := range g.Parameters() {
		vi, err := valueInfo(inputName(i), p.Type())
		if err != nil {
			return nil, err
		}

		gp = appendMessage(gp, 11, vi)
	}

	for _, vi := range outputs {
		gp = appendMessage(gp, 12, vi)
	}

	var mp []byte

	mp = protowire.AppendTag(mp, 1, protowire.VarintType)
	mp = protowire.AppendVarint(mp, irVersion)
	mp = appendString(mp, 2, "primparity")
	mp = appendMessage(mp, 7, gp)

	var opset []byte

	opset = appendString(opset, 1, "")
	opset = protowire.AppendTag(opset, 2, protowire.VarintType)
	opset = protowire.AppendVarint(opset, Opset)
	mp = appendMessage(mp, 8, opset)

	return mp, nil
}

type exporter struct {
	nodes [][]byte
	inits [][]byte
	temps int
}

func valueName(n *graph.Node) string {
	switch n.Op() {
	case graph.OpParameter:
		return inputName(int(n.Attrs().Int(graph.AttrIndex)))
	case graph.OpTupleElement:
		return fmt.Sprintf("v%d_%d", n.Inputs()[0].ID(), n.Attrs().Int(graph.AttrIndex))
	default:
		return fmt.Sprintf("v%d", n.ID())
	}
}

func (e *exporter) temp() string {
	e.temps++
	return fmt.Sprintf("t%d", e.temps)
}

func (e *exporter) emit(op string, inputs, outputs []string, attrs ...[]byte) {
	e.nodes = append(e.nodes, nodeProto(op, inputs, outputs, attrs...))
}

func (e *exporter) constant(t *tensor.Tensor) (string, error) {
	name := e.temp()

	tp, err := tensorProto(name, t)
	if err != nil {
		return "", err
	}

	e.inits = append(e.inits, tp)

	return name, nil
}

func (e *exporter) int64s(vals []int64) (string, error) {
	data := make([]float64, len(vals))
	for i, v := range vals {
		data[i] = float64(v)
	}

	t, err := tensor.New(dtype.Int64, data, []int64{int64(len(vals))})
	if err != nil {
		return "", err
	}

	return e.constant(t)
}

//nolint:funlen,gocyclo
func (e *exporter) node(n *graph.Node) error {
	in := make([]string, len(n.Inputs()))
	for i, x := range n.Inputs() {
		in[i] = valueName(x)
	}

	for _, t := range n.Types() {
		if _, ok := elemTypes[t.DType]; !ok {
			return &ExportError{Op: n.Op(), Reason: fmt.Sprintf("dtype %s", t.DType)}
		}
	}

	out := []string{valueName(n)}
	attrs := n.Attrs()

	if op, ok := direct[n.Op()]; ok {
		if n.Op() == graph.OpMatMul && attrs.DType(graph.AttrDType).Valid() && attrs.DType(graph.AttrDType) != n.Inputs()[0].DType() {
			tmp := e.temp()
			e.emit(op, in, []string{tmp})
			e.emit("Cast", []string{tmp}, out, intAttr("to", elemTypes[n.DType()]))

			return nil
		}

		e.emit(op, in, out)

		return nil
	}

	if op, ok := boolOnly[n.Op()]; ok {
		if n.Inputs()[0].DType() != dtype.Bool {
			return &ExportError{Op: n.Op(), Reason: "integer bitwise ops need opset 18"}
		}

		e.emit(op, in, out)

		return nil
	}

	switch n.Op() {
	case graph.OpParameter, graph.OpTupleElement:
		return nil
	case graph.OpConstant:
		t, _ := graph.ConstantValue(n)

		tp, err := tensorProto(out[0], t)
		if err != nil {
			return err
		}

		e.inits = append(e.inits, tp)
	case graph.OpRsqrt:
		tmp := e.temp()
		e.emit("Sqrt", in, []string{tmp})
		e.emit("Reciprocal", []string{tmp}, out)
	case graph.OpNotEqual:
		tmp := e.temp()
		e.emit("Equal", in, []string{tmp})
		e.emit("Not", []string{tmp}, out)
	case graph.OpIsFinite:
		nan, inf, either := e.temp(), e.temp(), e.temp()
		e.emit("IsNaN", in, []string{nan})
		e.emit("IsInf", in, []string{inf})
		e.emit("Or", []string{nan, inf}, []string{either})
		e.emit("Not", []string{either}, out)
	case graph.OpMod:
		e.emit("Mod", in, out, intAttr("fmod", 1))
	case graph.OpClip:
		// ONNX Clip takes scalar bounds only.
		tmp := e.temp()
		e.emit("Max", in[:2], []string{tmp})
		e.emit("Min", []string{tmp, in[2]}, out)
	case graph.OpSelect:
		if len(in) != 3 || n.Inputs()[0].DType() != dtype.Bool {
			return &ExportError{Op: n.Op(), Reason: "only two-way select on a bool predicate"}
		}

		e.emit("Where", []string{in[0], in[2], in[1]}, out)
	case graph.OpCast:
		e.emit("Cast", in, out, intAttr("to", elemTypes[n.DType()]))
	case graph.OpReshape:
		shape, err := e.int64s(n.Shape())
		if err != nil {
			return err
		}

		e.emit("Reshape", []string{in[0], shape}, out)
	case graph.OpBroadcast:
		return e.broadcast(n, in[0], out)
	case graph.OpTranspose:
		e.emit("Transpose", in, out, intsAttr("perm", attrs.Ints(graph.AttrPerm)))
	case graph.OpConcat:
		e.emit("Concat", in, out, intAttr("axis", attrs.Int(graph.AttrAxis)))
	case graph.OpSlice:
		return e.slice(n, in[0], out)
	case graph.OpGather:
		idx := e.temp()
		e.emit("Cast", in[1:], []string{idx}, intAttr("to", elemTypes[dtype.Int64]))
		e.emit("Gather", []string{in[0], idx}, out, intAttr("axis", attrs.Int(graph.AttrAxis)))
	case graph.OpReduceSum:
		axes, err := e.int64s(attrs.Ints(graph.AttrAxes))
		if err != nil {
			return err
		}

		e.emit("ReduceSum", []string{in[0], axes}, out, intAttr("keepdims", 0), intAttr("noop_with_empty_axes", 1))
	case graph.OpReduceMax, graph.OpReduceMin, graph.OpReduceProd:
		axes := attrs.Ints(graph.AttrAxes)
		if len(axes) == 0 {
			e.emit("Identity", in, out)
			return nil
		}

		op := map[string]string{graph.OpReduceMax: "ReduceMax", graph.OpReduceMin: "ReduceMin", graph.OpReduceProd: "ReduceProd"}[n.Op()]
		e.emit(op, in, out, intsAttr("axes", axes), intAttr("keepdims", 0))
	case graph.OpCumSum:
		axis, err := e.constant(tensor.Scalar(dtype.Int64, float64(attrs.Int(graph.AttrAxis))))
		if err != nil {
			return err
		}

		reverse := int64(0)
		if attrs.Bool(graph.AttrReverse) {
			reverse = 1
		}

		e.emit("CumSum", []string{in[0], axis}, out, intAttr("reverse", reverse))
	case graph.OpTopK:
		k, err := e.int64s([]int64{attrs.Int(graph.AttrK)})
		if err != nil {
			return err
		}

		idx := e.temp()
		e.emit("TopK", []string{in[0], k}, []string{fmt.Sprintf("v%d_0", n.ID()), idx},
			intAttr("axis", -1), intAttr("largest", 1), intAttr("sorted", 1))
		e.emit("Cast", []string{idx}, []string{fmt.Sprintf("v%d_1", n.ID())}, intAttr("to", elemTypes[dtype.Int32]))
	default:
		return &ExportError{Op: n.Op(), Reason: "no ONNX lowering"}
	}

	return nil
}

// broadcast reshapes the operand to the output rank, then expands.
func (e *exporter) broadcast(n *graph.Node, x string, out []string) error {
	shape := n.Shape()
	mid := make([]int64, len(shape))

	for i := range mid {
		mid[i] = 1
	}

	for i, d := range n.Attrs().Axes(graph.AttrDims) {
		mid[d] = n.Inputs()[0].Shape()[i]
	}

	midName, err := e.int64s(mid)
	if err != nil {
		return err
	}

	shapeName, err := e.int64s(shape)
	if err != nil {
		return err
	}

	tmp := e.temp()
	e.emit("Reshape", []string{x, midName}, []string{tmp})
	e.emit("Expand", []string{tmp, shapeName}, out)

	return nil
}

func (e *exporter) slice(n *graph.Node, x string, out []string) error {
	attrs := n.Attrs()
	start, limit := attrs.Ints(graph.AttrStart), attrs.Ints(graph.AttrLimit)

	strides := attrs.Ints(graph.AttrStrides)
	if strides == nil {
		strides = make([]int64, len(start))
		for i := range strides {
			strides[i] = 1
		}
	}

	axes := make([]int64, len(start))
	for i := range axes {
		axes[i] = int64(i)
	}

	names := make([]string, 0, 4)

	for _, vals := range [][]int64{start, limit, axes, strides} {
		name, err := e.int64s(vals)
		if err != nil {
			return err
		}

		names = append(names, name)
	}

	e.emit("Slice", append([]string{x}, names...), out)

	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func nodeProto(op string, inputs, outputs []string, attrs ...[]byte) []byte {
	var b []byte

	for _, s := range inputs {
		b = appendString(b, 1, s)
	}

	for _, s := range outputs {
		b = appendString(b, 2, s)
	}

	b = appendString(b, 4, op)

	for _, a := range attrs {
		b = appendMessage(b, 5, a)
	}

	return b
}

// AttributeProto.AttributeType values.
const (
	attrInt  = 2
	attrInts = 7
)

func intAttr(name string, v int64) []byte {
	var b []byte

	b = appendString(b, 1, name)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v))
	b = protowire.AppendTag(b, 20, protowire.VarintType)

	return protowire.AppendVarint(b, attrInt)
}

func intsAttr(name string, vs []int64) []byte {
	var b []byte

	b = appendString(b, 1, name)

	for _, v := range vs {
		b = protowire.AppendTag(b, 8, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	}

	b = protowire.AppendTag(b, 20, protowire.VarintType)

	return protowire.AppendVarint(b, attrInts)
}

func valueInfo(name string, t graph.Type) ([]byte, error) {
	et, ok := elemTypes[t.DType]
	if !ok {
		return nil, &ExportError{Op: name, Reason: fmt.Sprintf("dtype %s", t.DType)}
	}

	var shape []byte

	for _, d := range t.Shape {
		var dim []byte

		dim = protowire.AppendTag(dim, 1, protowire.VarintType)
		dim = protowire.AppendVarint(dim, uint64(d))
		shape = appendMessage(shape, 1, dim)
	}

	var tt []byte

	tt = protowire.AppendTag(tt, 1, protowire.VarintType)
	tt = protowire.AppendVarint(tt, uint64(et))
	tt = appendMessage(tt, 2, shape)

	var tp []byte

	tp = appendMessage(tp, 1, tt)

	var b []byte

	b = appendString(b, 1, name)

	return appendMessage(b, 2, tp), nil
}

func tensorProto(name string, t *tensor.Tensor) ([]byte, error) {
	et, ok := elemTypes[t.DType()]
	if !ok {
		return nil, &ExportError{Op: graph.OpConstant, Reason: fmt.Sprintf("dtype %s", t.DType())}
	}

	raw, err := rawData(t)
	if err != nil {
		return nil, err
	}

	var b []byte

	for _, d := range t.Shape() {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d))
	}

	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(et))
	b = appendString(b, 8, name)
	b = protowire.AppendTag(b, 9, protowire.BytesType)

	return protowire.AppendBytes(b, raw), nil
}

// rawData encodes t little-endian in its ONNX storage layout.
func rawData(t *tensor.Tensor) ([]byte, error) {
	data := t.RawData()
	le := binary.LittleEndian

	var out []byte

	if t.Wide() {
		for _, b := range t.RawBits() {
			out = le.AppendUint64(out, b)
		}

		return out, nil
	}

	for _, v := range data {
		switch t.DType() {
		case dtype.Float32:
			out = le.AppendUint32(out, math.Float32bits(float32(v)))
		case dtype.Float64:
			out = le.AppendUint64(out, math.Float64bits(v))
		case dtype.Float16:
			out = le.AppendUint16(out, float16.Fromfloat32(float32(v)).Bits())
		case dtype.BFloat16:
			out = le.AppendUint16(out, uint16(math.Float32bits(float32(v))>>16))
		case dtype.Bool, dtype.Uint8:
			out = append(out, uint8(v))
		case dtype.Int8:
			out = append(out, uint8(int8(v)))
		case dtype.Int16:
			out = le.AppendUint16(out, uint16(int16(v)))
		case dtype.Uint16:
			out = le.AppendUint16(out, uint16(v))
		case dtype.Int32:
			out = le.AppendUint32(out, uint32(int32(v)))
		case dtype.Uint32:
			out = le.AppendUint32(out, uint32(v))
		default:
			return nil, &ExportError{Op: graph.OpConstant, Reason: fmt.Sprintf("dtype %s", t.DType())}
		}
	}

	return out, nil
}

func inputName(i int) string  { return fmt.Sprintf("input_%d", i) }
func outputName(i int) string { return fmt.Sprintf("output_%d", i) }
