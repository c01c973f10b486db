package dtype

import "fmt"

// weakFloat is the untyped float node of the promotion lattice. A join that
// lands on it resolves to DefaultFloat.
const weakFloat DType = -1

// DefaultFloat is the float type produced when integer types can only be
// joined through the untyped float node, and by true division of integers.
const DefaultFloat = Float64

// DefaultInt is the integer type produced by summing booleans.
const DefaultInt = Int64

var lattice = map[DType][]DType{
	Bool:      {Uint8, Int8},
	Uint8:     {Int16, Uint16},
	Uint16:    {Int32, Uint32},
	Uint32:    {Int64, Uint64},
	Uint64:    {weakFloat},
	Int8:      {Int16},
	Int16:     {Int32},
	Int32:     {Int64},
	Int64:     {weakFloat},
	weakFloat: {BFloat16, Float16},
	BFloat16:  {Float32},
	Float16:   {Float32},
	Float32:   {Float64},
	Float64:   nil,
}

var upperBounds = func() map[DType]map[DType]bool {
	out := make(map[DType]map[DType]bool, len(lattice))
	for node := range lattice {
		seen := map[DType]bool{}
		stack := []DType{node}

		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if seen[n] {
				continue
			}

			seen[n] = true
			stack = append(stack, lattice[n]...)
		}

		out[node] = seen
	}

	return out
}()

// Promote returns the least upper bound of a and b in the promotion lattice.
func Promote(a, b DType) (DType, error) {
	ua, okA := upperBounds[a]
	ub, okB := upperBounds[b]

	if !okA || !okB || !a.Valid() || !b.Valid() {
		return Invalid, fmt.Errorf("dtype: cannot promote %s and %s", a, b)
	}

	var common []DType
	for n := range ua {
		if ub[n] {
			common = append(common, n)
		}
	}

	for _, n := range common {
		bounds := upperBounds[n]

		lub := true
		for _, c := range common {
			if !bounds[c] {
				lub = false
				break
			}
		}

		if lub {
			if n == weakFloat {
				return DefaultFloat, nil
			}

			return n, nil
		}
	}

	return Invalid, fmt.Errorf("dtype: no least upper bound for %s and %s", a, b)
}

// PromoteAll folds Promote over dts.
func PromoteAll(dts ...DType) (DType, error) {
	if len(dts) == 0 {
		return Invalid, fmt.Errorf("dtype: nothing to promote")
	}

	out := dts[0]
	for _, d := range dts[1:] {
		var err error

		out, err = Promote(out, d)
		if err != nil {
			return Invalid, err
		}
	}

	return out, nil
}
