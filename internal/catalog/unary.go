package catalog

import (
	"math"

	"github.com/example/go-primparity/internal/harness"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// floatUnary are the unary primitives defined on floating operands only.
var floatUnary = []*lax.Primitive{
	lax.FloorP, lax.CeilP, lax.RoundP, lax.IsFiniteP, lax.ExpP, lax.Expm1P,
	lax.LogP, lax.Log1pP, lax.TanhP, lax.LogisticP, lax.SinP, lax.CosP,
	lax.AtanP, lax.AsinhP, lax.AcoshP, lax.AtanhP, lax.SqrtP, lax.RsqrtP,
	lax.LgammaP, lax.DigammaP, lax.ErfP, lax.ErfcP, lax.ErfInvP,
}

// numericUnary also accept integers.
var numericUnary = []*lax.Primitive{lax.NegP, lax.SignP, lax.AbsP}

func unaryElementwise() []*harness.Harness {
	var out []*harness.Harness

	add := func(p *lax.Primitive, dt dtype.DType, s []int64, args harness.ArgsMaker, suffix ...any) {
		parts := append([]any{p.Name(), dt, s}, suffix...)
		out = append(out, harness.New(GroupUnaryElementwise, caseName(parts...), unaryOf(p), args,
			lax.Params{"lax_name": p.Name(), "dtype": dt, "shape": s}))
	}

	for _, p := range floatUnary {
		for _, dt := range floats {
			add(p, dt, shape(2, 3), randArgs(rnd(dt, shape(2, 3))))
		}
	}

	for _, p := range numericUnary {
		for _, dt := range append([]dtype.DType{dtype.Int8, dtype.Int32, dtype.Uint32}, floats...) {
			add(p, dt, shape(4), randArgs(rnd(dt, shape(4))))
		}
	}

	// Values on which the source and target conventions differ.
	for _, dt := range floats {
		poles := tensor.MustNew(dt, []float64{0, -1, 0.5, 3, -1.5})
		add(lax.DigammaP, dt, shape(5), fixedArgs(poles), "poles")

		outside := tensor.MustNew(dt, []float64{-2, -1.5, -0.5, 0, 0.5, 1.5, math.Inf(1)})
		add(lax.ErfInvP, dt, shape(7), fixedArgs(outside), "out_of_domain")
	}

	empty := tensor.MustNew(dtype.Float32, nil, 0, 3)
	add(lax.SinP, dtype.Float32, shape(0, 3), fixedArgs(empty))

	return out
}

func bitwiseNot() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range append([]dtype.DType{dtype.Bool}, ints...) {
		s := shape(3, 4)
		out = append(out, harness.New(GroupBitwiseNot, caseName("not", dt, s), unaryOf(lax.NotP),
			randArgs(rnd(dt, s)), lax.Params{"lax_name": "not", "dtype": dt, "shape": s}))
	}

	return out
}

func populationCount() []*harness.Harness {
	var out []*harness.Harness

	for _, dt := range ints {
		s := shape(3, 4)
		out = append(out, harness.New(GroupPopulationCount, caseName("population_count", dt, s),
			unaryOf(lax.PopulationCountP), randArgs(rnd(dt, s)), lax.Params{"dtype": dt, "shape": s}))
	}

	return out
}
