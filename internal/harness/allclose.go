package harness

import (
	"fmt"
	"math"
	"strconv"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Tolerance bounds |source-target| <= Atol + Rtol*|target|. A zero field
// means the dtype default: the larger of the two leaf dtypes' defaults.
type Tolerance struct {
	Atol float64 `json:"atol,omitempty" yaml:"atol,omitempty"`
	Rtol float64 `json:"rtol,omitempty" yaml:"rtol,omitempty"`
}

// Resolve fills unset fields with the default for the dtype pair.
func (t Tolerance) Resolve(a, b dtype.DType) (atol, rtol float64) {
	def := math.Max(dtype.DefaultTolerance(a), dtype.DefaultTolerance(b))

	atol, rtol = t.Atol, t.Rtol
	if atol == 0 {
		atol = def
	}

	if rtol == 0 {
		rtol = def
	}

	return atol, rtol
}

// AllClose compares two output lists leaf by leaf. Leaf count, dtype and
// shape must match exactly before any value is looked at.
func AllClose(source, target []*tensor.Tensor, tol Tolerance) error {
	if len(source) != len(target) {
		return assertf(KindStructureMismatch, "source has %d outputs, target has %d", len(source), len(target))
	}

	for i := range source {
		if err := LeafClose(i, source[i], target[i], tol, nil); err != nil {
			return err
		}
	}

	return nil
}

// LeafClose compares one output pair. Positions for which skip returns true
// are left out.
func LeafClose(leaf int, a, b *tensor.Tensor, tol Tolerance, skip func(flat int) bool) error {
	if a == nil || b == nil {
		e := assertf(KindStructureMismatch, "missing output")
		e.Leaf = leaf

		return e
	}

	if a.DType() != b.DType() {
		e := assertf(KindDTypeMismatch, "source %s, target %s", a.DType(), b.DType())
		e.Leaf = leaf

		return e
	}

	if !tensor.SameShape(a.Shape(), b.Shape()) {
		e := assertf(KindShapeMismatch, "source %v, target %v", a.Shape(), b.Shape())
		e.Leaf = leaf

		return e
	}

	if a.Wide() && b.Wide() {
		return wideClose(leaf, a, b, skip)
	}

	atol, rtol := tol.Resolve(a.DType(), b.DType())

	ad, bd := a.Data(), b.Data()

	var (
		found []Mismatch
		total int
	)

	for i := range ad {
		if skip != nil && skip(i) {
			continue
		}

		if isClose(ad[i], bd[i], atol, rtol) {
			continue
		}

		total++

		if len(found) < maxReported {
			found = append(found, Mismatch{Flat: i, Index: unravel(i, a.Shape()), Source: ad[i], Target: bd[i]})
		}
	}

	if total == 0 {
		return nil
	}

	return &AssertionError{
		Kind:       KindNumericMismatch,
		Leaf:       leaf,
		Msg:        fmt.Sprintf("not close (atol=%g, rtol=%g)", atol, rtol),
		Mismatches: found,
		Total:      total,
	}
}

// wideClose compares Int64 and Uint64 leaves bit for bit; tolerances do not
// apply to them.
func wideClose(leaf int, a, b *tensor.Tensor, skip func(flat int) bool) error {
	ab, bb := a.RawBits(), b.RawBits()
	ad, bd := a.RawData(), b.RawData()

	var (
		found []Mismatch
		total int
	)

	for i := range ab {
		if ab[i] == bb[i] || (skip != nil && skip(i)) {
			continue
		}

		total++

		if len(found) < maxReported {
			found = append(found, Mismatch{
				Flat:       i,
				Index:      unravel(i, a.Shape()),
				Source:     ad[i],
				Target:     bd[i],
				SourceText: formatWide(a.DType(), ab[i]),
				TargetText: formatWide(b.DType(), bb[i]),
			})
		}
	}

	if total == 0 {
		return nil
	}

	return &AssertionError{
		Kind:       KindNumericMismatch,
		Leaf:       leaf,
		Msg:        "not equal (exact 64-bit integers)",
		Mismatches: found,
		Total:      total,
	}
}

func formatWide(dt dtype.DType, b uint64) string {
	if dt.IsSigned() {
		return strconv.FormatInt(int64(b), 10)
	}

	return strconv.FormatUint(b, 10)
}

// isClose never treats NaN as a wildcard: NaN matches only NaN and an
// infinity only the identical infinity.
func isClose(a, b, atol, rtol float64) bool {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return math.IsNaN(a) && math.IsNaN(b)
	case math.IsInf(a, 0) || math.IsInf(b, 0):
		return a == b
	default:
		return math.Abs(a-b) <= atol+rtol*math.Abs(b)
	}
}

// same is exact equality with NaN equal to NaN.
func same(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}

	return a == b
}

func unravel(flat int, shape []int64) []int64 {
	idx := make([]int64, len(shape))

	for d := len(shape) - 1; d >= 0; d-- {
		if shape[d] == 0 {
			continue
		}

		idx[d] = int64(flat) % shape[d]
		flat /= int(shape[d])
	}

	return idx
}
