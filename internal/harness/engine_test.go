package harness

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-primparity/internal/convert"
	"github.com/example/go-primparity/internal/lax"
	"github.com/example/go-primparity/internal/lax/numpy"
	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

func unaryFn(p *lax.Primitive) lax.Func {
	return func(args ...lax.Value) ([]lax.Value, error) {
		y, err := lax.Unary(p, args[0])
		if err != nil {
			return nil, err
		}

		return []lax.Value{y}, nil
	}
}

func addFn(args ...lax.Value) ([]lax.Value, error) {
	z, err := numpy.Add(args[0], args[1])
	if err != nil {
		return nil, err
	}

	return []lax.Value{z}, nil
}

// fixedMode returns canned results regardless of fn.
func fixedMode(name string, out []*tensor.Tensor, err error) Mode {
	return Mode{
		Name:   name,
		Strict: true,
		Convert: func(lax.Func) convert.Func {
			return func(context.Context, ...any) ([]*tensor.Tensor, error) { return out, err }
		},
	}
}

func TestComparePasses(t *testing.T) {
	e := NewEngine()
	assert.Len(t, e.Modes(), 2)

	v, err := e.Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1, 2), f32s(3, 4)})
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, v)
}

func TestCompareReferenceFailureIsFatal(t *testing.T) {
	mismatched := []*tensor.Tensor{f32s(1, 2), f32s(1, 2, 3)}

	v, err := NewEngine().Compare(context.Background(), addFn, mismatched)
	assert.Equal(t, VerdictFail, v)

	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.NotErrorIs(t, err, ErrAssertion)
}

func TestCompareExpectTargetError(t *testing.T) {
	x := []*tensor.Tensor{tensor.MustNew(dtype.Int32, []float64{7, 8})}

	v, err := NewEngine().Compare(context.Background(), unaryFn(lax.PopulationCountP), x, WithExpectedTargetError("PopulationCount"))
	require.NoError(t, err)
	assert.Equal(t, VerdictExpectedDivergence, v)

	v, err = NewEngine().Compare(context.Background(), unaryFn(lax.PopulationCountP), x, WithExpectedTargetError("^nomatch$"))
	assert.Equal(t, VerdictFail, v)
	requireKind(t, err, KindTargetErrorMismatch)
}

func TestCompareStaleExpectation(t *testing.T) {
	v, err := NewEngine().Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1), f32s(2)}, WithExpectedTargetError(""))
	assert.Equal(t, VerdictFail, v)

	ae := requireKind(t, err, KindStaleExpectation)
	assert.Equal(t, "graph", ae.Mode)
}

func TestCompareNonStrictModesSitOutExpectedErrors(t *testing.T) {
	lenient := fixedMode("lenient", []*tensor.Tensor{f32s(0)}, nil)
	lenient.Strict = false

	e := NewEngine(WithModes(fixedMode("strict", nil, errors.New("no kernel")), lenient))

	v, err := e.Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1), f32s(2)}, WithExpectedTargetError("kernel"))
	require.NoError(t, err)
	assert.Equal(t, VerdictExpectedDivergence, v)
}

func TestCompareUnexpectedTargetError(t *testing.T) {
	e := NewEngine(WithModes(fixedMode("broken", nil, errors.New("boom"))))

	_, err := e.Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1), f32s(2)})
	requireKind(t, err, KindUnexpectedTargetError)
}

func TestCompareIgnoredErrors(t *testing.T) {
	errUnsupported := errors.New("unsupported")
	m := fixedMode("partial", nil, errUnsupported)
	m.Ignore = func(err error) bool { return errors.Is(err, errUnsupported) }

	v, err := NewEngine(WithModes(m)).Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1), f32s(2)})
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, v)
}

func TestCompareCustomComparatorFallback(t *testing.T) {
	fn := unaryFn(lax.DigammaP)
	args := []*tensor.Tensor{f32s(0, -1, 0.5, 2)}

	_, err := NewEngine().Compare(context.Background(), fn, args)
	requireKind(t, err, KindNumericMismatch)

	v, err := NewEngine().Compare(context.Background(), fn, args, WithComparator(DigammaPoles, false))
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, v)
}

func TestCompareAlwaysCustom(t *testing.T) {
	called := 0
	cmp := func(args, source, target []*tensor.Tensor, tol Tolerance) error {
		called++
		return nil
	}

	_, err := NewEngine().Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1), f32s(2)}, WithComparator(cmp, true))
	require.NoError(t, err)
	assert.Equal(t, 2, called)

	called = 0
	_, err = NewEngine().Compare(context.Background(), addFn, []*tensor.Tensor{f32s(1), f32s(2)}, WithComparator(cmp, false))
	require.NoError(t, err)
	assert.Zero(t, called, "fallback comparator ran although outputs were close")
}

func TestCompareShapeMismatchNotRescued(t *testing.T) {
	wrong := fixedMode("reshaped", []*tensor.Tensor{tensor.MustNew(dtype.Float32, []float64{4, 6}, 1, 2)}, nil)
	accept := func(args, source, target []*tensor.Tensor, tol Tolerance) error { return nil }

	_, err := NewEngine(WithModes(wrong)).Compare(context.Background(), addFn,
		[]*tensor.Tensor{f32s(1, 2), f32s(3, 4)}, WithComparator(accept, false))
	ae := requireKind(t, err, KindShapeMismatch)
	assert.Equal(t, "reshaped", ae.Mode)
}

func TestCompareTolerance(t *testing.T) {
	off := fixedMode("off", []*tensor.Tensor{f32s(3.001)}, nil)
	e := NewEngine(WithModes(off))
	args := []*tensor.Tensor{f32s(1), f32s(2)}

	_, err := e.Compare(context.Background(), addFn, args)
	requireKind(t, err, KindNumericMismatch)

	v, err := e.Compare(context.Background(), addFn, args, WithAtol(1e-2))
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, v)

	v, err = e.Compare(context.Background(), addFn, args, WithRtol(1e-3))
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, v)
}

func TestCompareCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Compare(ctx, addFn, []*tensor.Tensor{f32s(1), f32s(2)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompareIsIdempotent(t *testing.T) {
	fn := unaryFn(lax.DigammaP)
	args := []*tensor.Tensor{f32s(0, -1, 1.5)}

	v1, err1 := NewEngine().Compare(context.Background(), fn, args, WithComparator(DigammaPoles, false))
	v2, err2 := NewEngine().Compare(context.Background(), fn, args, WithComparator(DigammaPoles, false))
	assert.Equal(t, v1, v2)
	assert.Equal(t, err1, err2)
	assert.False(t, math.IsNaN(args[0].Data()[2]))
}
