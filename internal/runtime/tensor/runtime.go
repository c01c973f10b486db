package tensor

import (
	"sync"
	"sync/atomic"
)

// workers controls goroutine parallelism for the row loops of MatMul and
// Elementwise. Values <= 1 disable parallel execution. Each goroutine writes
// a disjoint range of the output, so results do not depend on the setting.
var workers atomic.Int32

// parallelThreshold is the output size below which loops stay sequential.
const parallelThreshold = 64

func init() {
	workers.Store(1)
}

// SetWorkers sets the maximum number of goroutines used by tensor kernels.
func SetWorkers(n int) {
	const maxInt32 = int(^uint32(0) >> 1)

	n = max(n, 1)
	n = min(n, maxInt32)

	workers.Store(int32(n))
}

// Workers returns the current kernel parallelism.
func Workers() int {
	return max(int(workers.Load()), 1)
}

func parallelFor(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}

	maxWorkers := Workers()
	if maxWorkers <= 1 || n < parallelThreshold {
		fn(0, n)
		return
	}

	maxWorkers = min(maxWorkers, n)

	chunk := (n + maxWorkers - 1) / maxWorkers
	var wg sync.WaitGroup

	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}

	wg.Wait()
}
