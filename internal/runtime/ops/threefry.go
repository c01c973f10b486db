package ops

import "math/bits"

var threefryRotations = [2][4]int{{13, 15, 26, 6}, {17, 29, 16, 24}}

// Threefry2x32 is the 20-round Threefry-2x32 block cipher keyed by (k0, k1)
// and applied to the counter pair (x0, x1).
func Threefry2x32(k0, k1, x0, x1 uint32) (uint32, uint32) {
	ks := [3]uint32{k0, k1, k0 ^ k1 ^ 0x1BD11BDA}

	x0 += ks[0]
	x1 += ks[1]

	for i := range 5 {
		for _, r := range threefryRotations[i%2] {
			x0 += x1
			x1 = bits.RotateLeft32(x1, r)
			x1 ^= x0
		}

		x0 += ks[(i+1)%3]
		x1 += ks[(i+2)%3] + uint32(i+1)
	}

	return x0, x1
}

// ThreefryBits hashes counts under the key (k0, k1). The first half of counts
// pairs with the second half; an odd count is padded with a zero.
func ThreefryBits(k0, k1 uint32, counts []uint32) []uint32 {
	n := len(counts)
	half := (n + 1) / 2

	padded := make([]uint32, 2*half)
	copy(padded, counts)

	out := make([]uint32, 2*half)
	for i := range half {
		out[i], out[half+i] = Threefry2x32(k0, k1, padded[i], padded[half+i])
	}

	return out[:n]
}

// SplitKey derives n keys from (k0, k1) by hashing the counter sequence
// 0..2n-1. Key i is words 2i and 2i+1 of the result.
func SplitKey(k0, k1 uint32, n int) []uint32 {
	if n <= 0 {
		return nil
	}

	counts := make([]uint32, 2*n)
	for i := range counts {
		counts[i] = uint32(i)
	}

	return ThreefryBits(k0, k1, counts)
}
