package catalog

import (
	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
)

var matrixShapes = [][]int64{shape(3, 3), shape(4, 2), shape(2, 4), shape(2, 3, 3)}

func svd() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range floats {
		for _, s := range matrixShapes {
			for _, c := range []struct{ computeUV, full bool }{{true, true}, {true, false}, {false, false}} {
				computeUV, full := c.computeUV, c.full
				fn := func(args ...lax.Value) ([]lax.Value, error) { return lax.Svd(args[0], full, computeUV) }

				out = append(out, harness.New(GroupSVD, caseName("svd", dt, s, "compute_uv", computeUV, "full_matrices", full),
					fn, randArgs(rnd(dt, s)),
					lax.Params{"dtype": dt, "shape": s, "compute_uv": computeUV, "full_matrices": full}))
			}
		}
	}

	return out
}

func qr() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range floats {
		for _, s := range matrixShapes {
			for _, full := range []bool{false, true} {
				fn := func(args ...lax.Value) ([]lax.Value, error) { return lax.Qr(args[0], full) }

				out = append(out, harness.New(GroupQR, caseName("qr", dt, s, "full_matrices", full), fn,
					randArgs(rnd(dt, s)), lax.Params{"dtype": dt, "shape": s, "full_matrices": full}))
			}
		}
	}

	return out
}

func matmul() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range []dtype.DType{dtype.Int32, dtype.Float32, dtype.Float64} {
		for _, c := range []struct{ x, y []int64 }{
			{shape(2, 3), shape(3, 4)},
			{shape(1, 5), shape(5, 1)},
			{shape(2, 2, 3), shape(2, 3, 2)},
			{shape(3, 0), shape(0, 2)},
		} {
			out = append(out, harness.New(GroupMatmul, caseName("matmul", dt, c.x, c.y), fn2(lax.DotGeneral),
				randArgs(rnd(dt, c.x), rnd(dt, c.y)), lax.Params{"dtype": dt, "lhs_shape": c.x, "rhs_shape": c.y}))
		}
	}

	return out
}
