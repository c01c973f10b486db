package ops

import (
	"math"
	"sort"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// NaNOrder selects where NaN keys land in an ascending order.
type NaNOrder int

const (
	NaNLast NaNOrder = iota
	NaNFirst
)

// lessTotal is a strict weak order on float64 placing NaN per order and
// treating -0 and +0 as equal.
func lessTotal(a, b float64, order NaNOrder) bool {
	an, bn := math.IsNaN(a), math.IsNaN(b)

	switch {
	case an && bn:
		return false
	case an:
		return order == NaNFirst
	case bn:
		return order == NaNLast
	}

	return a < b
}

// SortPermutation returns the stable ascending permutation of keys.
func SortPermutation(keys []float64, order NaNOrder) []int {
	return SortPermutationFunc(len(keys), func(i, j int) bool {
		return lessTotal(keys[i], keys[j], order)
	})
}

// SortPermutationFunc returns the stable permutation of n positions that
// orders them ascending under less.
func SortPermutationFunc(n int, less func(i, j int) bool) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	sort.SliceStable(perm, func(i, j int) bool {
		return less(perm[i], perm[j])
	})

	return perm
}

// TopKPermutation returns the indices of the k largest values in descending
// order. Equal values keep their original relative order.
func TopKPermutation(values []float64, k int, order NaNOrder) []int {
	// Descending: NaN placed last in ascending order counts as the largest value.
	return TopKPermutationFunc(len(values), k, func(i, j int) bool {
		return lessTotal(values[i], values[j], order)
	})
}

// TopKPermutationFunc is TopKPermutation for n positions ordered by less.
func TopKPermutationFunc(n, k int, less func(i, j int) bool) []int {
	return SortPermutationFunc(n, func(i, j int) bool { return less(j, i) })[:k]
}

// KeyLess orders flat positions of a sort key. When bits is non-nil the
// exact Int64 or Uint64 patterns are compared instead of data.
func KeyLess(dt dtype.DType, data []float64, bits []uint64, order NaNOrder) func(i, j int) bool {
	if bits != nil {
		return func(i, j int) bool { return LessWide(dt, bits[i], bits[j]) }
	}

	return func(i, j int) bool { return lessTotal(data[i], data[j], order) }
}
