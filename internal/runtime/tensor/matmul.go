package tensor

import (
	"errors"
	"fmt"

	"github.com/example/go-primparity/internal/runtime/dtype"
)

// MatMul performs batched matrix multiplication with broadcasting over batch
// dims. Products accumulate in float64 and round once to out.
//
//nolint:funlen // Broadcasting and indexing logic is intentionally explicit.
func MatMul(a, b *Tensor, out dtype.DType) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, errors.New("tensor: matmul requires non-nil inputs")
	}

	if a.Rank() < 2 || b.Rank() < 2 {
		return nil, fmt.Errorf("tensor: matmul requires rank >= 2, got %d and %d", a.Rank(), b.Rank())
	}

	aShape := a.shape
	bShape := b.shape
	aRank := len(aShape)
	bRank := len(bShape)

	m := aShape[aRank-2]
	k := aShape[aRank-1]
	k2 := bShape[bRank-2]

	n := bShape[bRank-1]
	if k != k2 {
		return nil, fmt.Errorf("tensor: matmul mismatch: A shape %v and B shape %v (K dims %d vs %d)", aShape, bShape, k, k2)
	}

	batchShape, err := broadcastShape(aShape[:aRank-2], bShape[:bRank-2])
	if err != nil {
		return nil, fmt.Errorf("tensor: matmul batch broadcast: %w", err)
	}

	outShape := make([]int64, 0, len(batchShape)+2)
	outShape = append(outShape, batchShape...)
	outShape = append(outShape, m, n)

	total, err := NumElements(outShape)
	if err != nil {
		return nil, err
	}

	aStrides := computeStrides(aShape)
	bStrides := computeStrides(bShape)

	batchCount, err := NumElements(batchShape)
	if err != nil {
		return nil, err
	}

	batchStrides := computeStrides(batchShape)
	data := make([]float64, total)
	rows := batchCount * int(m)

	parallelFor(rows, func(lo, hi int) {
		batchCoords := make([]int64, len(batchShape))

		for row := lo; row < hi; row++ {
			batchIdx, i := row/int(m), int64(row%int(m))
			linearToCoord(int64(batchIdx), batchShape, batchStrides, batchCoords)
			aOff := broadcastBatchOffset(batchCoords, aShape[:aRank-2], aStrides[:aRank-2])
			bOff := broadcastBatchOffset(batchCoords, bShape[:bRank-2], bStrides[:bRank-2])

			for j := range n {
				var sum float64

				for kk := range k {
					sum += a.data[aOff+i*k+kk] * b.data[bOff+kk*n+j]
				}

				data[int64(row)*n+j] = sum
			}
		}
	})

	return newOwned(out, data, outShape), nil
}

func broadcastBatchOffset(batchCoords, srcBatchShape, srcBatchStrides []int64) int64 {
	if len(srcBatchShape) == 0 {
		return 0
	}

	pad := len(batchCoords) - len(srcBatchShape)

	var off int64

	for i := range srcBatchShape {
		coord := batchCoords[pad+i]
		if srcBatchShape[i] == 1 {
			coord = 0
		}

		off += coord * srcBatchStrides[i]
	}

	return off
}
