package lax

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/example/go-primparity/internal/runtime/dtype"
	"github.com/example/go-primparity/internal/runtime/ops"
	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Key is an explicit PRNG seed: a pair of 32-bit words.
type Key struct {
	Hi, Lo uint32
}

// PRNGKey builds a key from a 64-bit seed.
func PRNGKey(seed uint64) Key {
	return Key{Hi: uint32(seed >> 32), Lo: uint32(seed)}
}

func (k Key) String() string { return fmt.Sprintf("[%d %d]", k.Hi, k.Lo) }

// Rand returns a generator whose stream is fully determined by k.
func (k Key) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(k.Hi), uint64(k.Lo)))
}

// Split derives n independent keys from k with the threefry counter hash.
func (k Key) Split(n int) []Key {
	words := ops.SplitKey(k.Hi, k.Lo, n)

	out := make([]Key, n)
	for i := range out {
		out[i] = Key{Hi: words[2*i], Lo: words[2*i+1]}
	}

	return out
}

// KeyFromTensor reads a key from a uint32[2] tensor.
func KeyFromTensor(t *tensor.Tensor) (Key, error) {
	if t.DType() != dtype.Uint32 || !tensor.SameShape(t.Shape(), []int64{2}) {
		return Key{}, fmt.Errorf("lax: key must be uint32[2], got %s%v", t.DType(), t.Shape())
	}

	w := t.Data()

	return Key{Hi: uint32(w[0]), Lo: uint32(w[1])}, nil
}

// Tensor returns k as a uint32[2] tensor.
func (k Key) Tensor() *tensor.Tensor {
	return tensor.MustNew(dtype.Uint32, []float64{float64(k.Hi), float64(k.Lo)}, 2)
}

func init() {
	Translations.register(RandomSplitP, randomSplitImpl)
}

// randomSplitImpl takes a uint32[2] key and returns uint32[num, 2].
func randomSplitImpl(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(args) != 1 {
		return nil, errorf(ErrShape, RandomSplitP, "expected 1 operand, got %d", len(args))
	}

	k, err := KeyFromTensor(args[0])
	if err != nil {
		return nil, errorf(ErrShape, RandomSplitP, "%v", err)
	}

	num := params.Int("num")
	if num < 0 {
		return nil, errorf(ErrValue, RandomSplitP, "num must be non-negative, got %d", num)
	}

	words := ops.SplitKey(k.Hi, k.Lo, int(num))
	data := make([]float64, len(words))

	for i, w := range words {
		data[i] = float64(w)
	}

	out, err := tensor.New(dtype.Uint32, data, []int64{num, 2})
	if err != nil {
		return nil, errorf(ErrValue, RandomSplitP, "%v", err)
	}

	return one(out), nil
}

// Uniform draws values of dt in [lo, hi). Integer dtypes draw integers in
// [ceil(lo), floor(hi)] clipped to the dtype range; bool draws 0/1.
func Uniform(k Key, dt dtype.DType, shape []int64, lo, hi float64) (*tensor.Tensor, error) {
	return UniformFrom(k.Rand(), dt, shape, lo, hi)
}

// UniformFrom is Uniform over an existing generator.
func UniformFrom(r *rand.Rand, dt dtype.DType, shape []int64, lo, hi float64) (*tensor.Tensor, error) {
	n, err := tensor.NumElements(shape)
	if err != nil {
		return nil, fmt.Errorf("lax: uniform: %w", err)
	}

	if !(lo < hi) {
		return nil, fmt.Errorf("lax: uniform: empty range [%g, %g)", lo, hi)
	}

	data := make([]float64, n)

	switch {
	case dt == dtype.Bool:
		for i := range data {
			data[i] = float64(r.IntN(2))
		}
	case dt.IsInt():
		ilo := math.Max(math.Ceil(lo), dt.MinValue())
		ihi := math.Min(math.Floor(hi), dt.MaxValue())

		if ihi < ilo {
			return nil, fmt.Errorf("lax: uniform: no %s values in [%g, %g)", dt, lo, hi)
		}

		span := uint64(ihi-ilo) + 1
		for i := range data {
			data[i] = ilo + float64(r.Uint64N(span))
		}
	default:
		for i := range data {
			data[i] = lo + r.Float64()*(hi-lo)
		}
	}

	return tensor.New(dt, data, shape)
}
