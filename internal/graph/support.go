package graph

import (
	"fmt"
	"slices"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// kernelGap is a set of operand dtypes without a kernel on some devices.
// Empty devices means every device; nil dtypes means every dtype.
type kernelGap struct {
	dtypes  []dtype.DType
	devices []string
}

var (
	halfFloats = []dtype.DType{dtype.Float16, dtype.BFloat16}
	bf16Only   = []dtype.DType{dtype.BFloat16}
	f16Only    = []dtype.DType{dtype.Float16}
	cpuGPU     = []string{"cpu", "gpu"}
)

// kernelGaps lists the (op, dtype, device) combinations the evaluator has no
// kernel for. Ops absent from the table are supported for every dtype their
// type rules accept.
var kernelGaps = map[string][]kernelGap{
	OpPopulationCount: {{}},
	OpNextafter:       {{}},

	OpAdd: {{dtypes: addGaps}},
	OpMul: {{dtypes: mulGaps}},
	OpMax: {{dtypes: minMaxGaps}},
	OpMin: {{dtypes: minMaxGaps}},

	OpReduceWindowSum:  {{dtypes: addGaps}},
	OpReduceWindowProd: {{dtypes: mulGaps}},
	OpReduceWindowMax:  {{dtypes: minMaxGaps}},
	OpReduceWindowMin:  {{dtypes: minMaxGaps}},
	OpScatterAdd:       {{dtypes: addGaps}},
	OpScatterMul:       {{dtypes: mulGaps}},
	OpScatterMax:       {{dtypes: minMaxGaps}},
	OpScatterMin:       {{dtypes: minMaxGaps}},

	OpReduceMax: {{dtypes: []dtype.DType{dtype.Bool}}},
	OpReduceMin: {{dtypes: []dtype.DType{dtype.Bool}}},

	OpAcosh:   {{dtypes: bf16Only, devices: cpuGPU}, {dtypes: f16Only}},
	OpAsinh:   {{dtypes: bf16Only, devices: cpuGPU}, {dtypes: f16Only}},
	OpAtanh:   {{dtypes: bf16Only, devices: cpuGPU}, {dtypes: f16Only}},
	OpErfinv:  {{dtypes: bf16Only, devices: cpuGPU}, {dtypes: f16Only}},
	OpDigamma: {{dtypes: bf16Only, devices: cpuGPU}},
	OpErf:     {{dtypes: bf16Only, devices: cpuGPU}},
	OpErfc:    {{dtypes: bf16Only, devices: cpuGPU}},
	OpLgamma:  {{dtypes: bf16Only, devices: cpuGPU}},
	OpRound:   {{dtypes: bf16Only, devices: cpuGPU}},
	OpRsqrt:   {{dtypes: bf16Only, devices: cpuGPU}},

	OpIgamma:  {{dtypes: halfFloats}},
	OpIgammac: {{dtypes: halfFloats}},
	OpBetainc: {{dtypes: halfFloats}},

	OpSvd: {{dtypes: halfFloats, devices: []string{"tpu"}}},
}

var (
	addGaps    = []dtype.DType{dtype.Uint16, dtype.Uint32, dtype.Uint64}
	mulGaps    = []dtype.DType{dtype.Uint32, dtype.Uint64}
	minMaxGaps = []dtype.DType{dtype.Int8, dtype.Uint16, dtype.Uint32, dtype.Uint64, dtype.Bool}
)

// maxPackedBits is the widest word a device can pack an (operand, tangent)
// pair into for SelectAndGatherAdd.
func maxPackedBits(device string) int {
	if device == "tpu" {
		return 32
	}

	return 64
}

// Supported reports whether op has a kernel for operands of dt on device.
func Supported(op string, dt dtype.DType, device string) bool {
	for _, gap := range kernelGaps[op] {
		if len(gap.devices) > 0 && !slices.Contains(gap.devices, device) {
			continue
		}

		if gap.dtypes == nil || slices.Contains(gap.dtypes, dt) {
			return false
		}
	}

	return true
}

// checkKernel returns an *UnsupportedError when n cannot run on device.
func checkKernel(n *Node, device string) error {
	in := make([]Type, len(n.inputs))
	for i, x := range n.inputs {
		in[i] = x.Type()
	}

	dt := supportDType(in, n.types)
	if !Supported(n.op, dt, device) {
		return &UnsupportedError{Op: n.op, DType: dt, Device: device}
	}

	switch n.op {
	case OpSort:
		return checkSort(n, in, device)
	case OpSelectAndGatherAdd:
		if bits, limit := 2*dt.Bits(), maxPackedBits(device); bits > limit {
			detail := fmt.Sprintf("operand and tangent pack into %d bits, more than %d", bits, limit)
			return &UnsupportedError{Op: n.op, DType: dt, Device: device, Detail: detail}
		}
	}

	return nil
}

// checkSort accepts only an unstable sort along the last axis of at most two
// operands, with non-bool keys when a value operand is present.
func checkSort(n *Node, in []Type, device string) error {
	unsupported := func(detail string) error {
		return &UnsupportedError{Op: OpSort, DType: in[0].DType, Device: device, Detail: detail}
	}

	rank := len(in[0].Shape)
	axis := int(n.attrs.Int(AttrAxis))

	switch {
	case n.attrs.Bool(AttrStable):
		return unsupported("stable sort")
	case axis != rank-1 && axis != -1:
		return unsupported("sort only along the last axis")
	case len(in) > 2:
		return unsupported("at most two operands")
	case len(in) == 2 && in[0].DType == dtype.Bool:
		return unsupported("key-value sort with bool keys")
	}

	return nil
}
