package harness

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

// specialCase describes where source and target conventions differ for an
// elementwise function: at positions where in holds, source must equal
// want(source) and target want(target) exactly; elsewhere values must be
// close.
type specialCase struct {
	name   string
	in     func(args []float64) bool
	source func(args []float64) float64
	target func(args []float64) float64
}

func (sc specialCase) compare(args, source, target []*tensor.Tensor, tol Tolerance) error {
	if len(source) != 1 || len(target) != 1 {
		return assertf(KindStructureMismatch, "%s: want one output, got %d and %d", sc.name, len(source), len(target))
	}

	src, tgt := source[0], target[0]
	if !tensor.SameShape(src.Shape(), tgt.Shape()) {
		e := assertf(KindShapeMismatch, "source %v, target %v", src.Shape(), tgt.Shape())
		e.Leaf = 0

		return e
	}

	operands, err := broadcastArgs(args, src.Shape())
	if err != nil {
		return fmt.Errorf("harness: %s: %w", sc.name, err)
	}

	sd, td := src.Data(), tgt.Data()
	special := make([]bool, len(sd))
	point := make([]float64, len(operands))

	var (
		found []Mismatch
		total int
	)

	for i := range sd {
		for k, op := range operands {
			point[k] = op[i]
		}

		if !sc.in(point) {
			continue
		}

		special[i] = true

		if same(sd[i], sc.source(point)) && same(td[i], sc.target(point)) {
			continue
		}

		total++

		if len(found) < maxReported {
			found = append(found, Mismatch{Flat: i, Index: unravel(i, src.Shape()), Source: sd[i], Target: td[i]})
		}
	}

	if total > 0 {
		return &AssertionError{
			Kind:       KindSpecialValueMismatch,
			Leaf:       0,
			Msg:        sc.name + ": special values differ from the documented conventions",
			Mismatches: found,
			Total:      total,
		}
	}

	return LeafClose(0, src, tgt, tol, func(i int) bool { return special[i] })
}

// broadcastArgs expands every argument to shape and returns the flat values.
func broadcastArgs(args []*tensor.Tensor, shape []int64) ([][]float64, error) {
	out := make([][]float64, len(args))

	for i, a := range args {
		b, err := a.BroadcastTo(shape)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}

		out[i] = b.Data()
	}

	return out, nil
}

func constant(v float64) func([]float64) float64 {
	return func([]float64) float64 { return v }
}

// DigammaPoles: at x == 0 and x == -1 the source yields NaN, the target +Inf.
func DigammaPoles(args, source, target []*tensor.Tensor, tol Tolerance) error {
	return specialCase{
		name:   "digamma",
		in:     func(p []float64) bool { return p[0] == 0 || p[0] == -1 },
		source: constant(math.NaN()),
		target: constant(math.Inf(1)),
	}.compare(args, source, target, tol)
}

// ErfInvOutOfDomain: outside [-1, 1] the source yields NaN, the target an
// infinity with the sign of x.
func ErfInvOutOfDomain(args, source, target []*tensor.Tensor, tol Tolerance) error {
	return specialCase{
		name:   "erf_inv",
		in:     func(p []float64) bool { return p[0] < -1 || p[0] > 1 },
		source: constant(math.NaN()),
		target: func(p []float64) float64 { return math.Inf(int(math.Copysign(1, p[0]))) },
	}.compare(args, source, target, tol)
}

// IgammaOrigin: at a == 0 and x == 0 the source yields NaN, the target 0.
func IgammaOrigin(args, source, target []*tensor.Tensor, tol Tolerance) error {
	return specialCase{
		name:   "igamma",
		in:     func(p []float64) bool { return p[0] == 0 && p[1] == 0 },
		source: constant(math.NaN()),
		target: constant(0),
	}.compare(args, source, target, tol)
}

// IgammacNonPositive: where a <= 0 or x <= 0 the source yields 1, the
// target NaN.
func IgammacNonPositive(args, source, target []*tensor.Tensor, tol Tolerance) error {
	return specialCase{
		name:   "igammac",
		in:     func(p []float64) bool { return p[0] <= 0 || p[1] <= 0 },
		source: constant(1),
		target: constant(math.NaN()),
	}.compare(args, source, target, tol)
}

// SVDReconstruction compares singular values and, when computeUV is set,
// the products u·diag(s)·vᵀ of both factorizations. The factors themselves
// are only unique up to sign, so they are never compared directly.
func SVDReconstruction(computeUV, fullMatrices bool) Comparator {
	return func(args, source, target []*tensor.Tensor, tol Tolerance) error {
		want := 1
		if computeUV {
			want = 3
		}

		if len(source) != want || len(target) != want {
			return assertf(KindStructureMismatch, "svd: want %d outputs, got %d and %d", want, len(source), len(target))
		}

		if err := LeafClose(0, source[0], target[0], tol, nil); err != nil {
			return err
		}

		if !computeUV {
			return nil
		}

		a, err := reconstruct(source, fullMatrices)
		if err != nil {
			return assertf(KindStructureMismatch, "svd source: %v", err)
		}

		b, err := reconstruct(target, fullMatrices)
		if err != nil {
			return assertf(KindStructureMismatch, "svd target: %v", err)
		}

		if err := LeafClose(0, a, b, tol, nil); err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) && ae.Kind == KindNumericMismatch {
				ae.Kind = KindReconstructionMismatch
			}

			return err
		}

		return nil
	}
}

// reconstruct computes u[..., :, :k]·diag(s)·vt[..., :k, :] for (s, u, vt).
func reconstruct(outs []*tensor.Tensor, fullMatrices bool) (*tensor.Tensor, error) {
	s, u, vt := outs[0], outs[1], outs[2]

	if u.Rank() < 2 || vt.Rank() < 2 || s.Rank() < 1 {
		return nil, fmt.Errorf("unexpected ranks %d, %d, %d", s.Rank(), u.Rank(), vt.Rank())
	}

	us, vs, ss := u.Shape(), vt.Shape(), s.Shape()
	m, mu := us[len(us)-2], us[len(us)-1]
	nv, n := vs[len(vs)-2], vs[len(vs)-1]
	k := ss[len(ss)-1]

	if k > mu || k > nv {
		return nil, fmt.Errorf("%d singular values for factors %v and %v", k, us, vs)
	}

	if !fullMatrices && (mu != k || nv != k) {
		return nil, fmt.Errorf("reduced factors %v and %v do not match %d singular values", us, vs, k)
	}

	if !slices.Equal(us[:len(us)-2], ss[:len(ss)-1]) || !slices.Equal(vs[:len(vs)-2], ss[:len(ss)-1]) {
		return nil, fmt.Errorf("batch dims of %v and %v do not match singular values %v", us, vs, ss)
	}

	batch := 1
	for _, d := range ss[:len(ss)-1] {
		batch *= int(d)
	}

	ud, sd, vd := u.Data(), s.Data(), vt.Data()
	out := make([]float64, batch*int(m*n))

	for b := 0; b < batch; b++ {
		uo, so, vo, oo := b*int(m*mu), b*int(k), b*int(nv*n), b*int(m*n)

		for i := 0; i < int(m); i++ {
			for j := 0; j < int(n); j++ {
				var acc float64
				for l := 0; l < int(k); l++ {
					acc += ud[uo+i*int(mu)+l] * sd[so+l] * vd[vo+l*int(n)+j]
				}

				out[oo+i*int(n)+j] = acc
			}
		}
	}

	shape := append(append([]int64{}, ss[:len(ss)-1]...), m, n)

	return tensor.New(u.DType(), out, shape)
}
