// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFT windows and
audio blocks. Every function is allocation free and constant time, so it can
be called from the processing goroutine.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// size <= 0. Subtracting one first keeps exact powers of 2 unchanged:
// bits.Len(7) is 3, so 8 maps to 8 rather than 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of 2 has a
// single bit set, so clearing its lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
