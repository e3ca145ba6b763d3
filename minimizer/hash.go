// Package minimizer implements the rolling 2-bit k-mer hash and the
// window-minimizer index over a reference SeqStore (spec §4.1).
package minimizer

import (
	"github.com/biosv/svdetect/seq"
)

// MinK and MaxK bound the valid k-mer length, per spec §4.1 ("valid range
// 1..30"). The 2-bit code itself would fit a uint64 up to K=32 (Go defines
// a uint64 shifted by 64 as 0, so Mask(32) is all ones); the bound is the
// spec's range, not a limit of the arithmetic.
const (
	MinK = 1
	MaxK = 30
)

// Mask returns the bitmask for a K-mer hash: (1 << 2K) - 1.
func Mask(k int) uint64 {
	return (uint64(1) << uint(2*k)) - 1
}

// NextHash advances a rolling k-mer hash by one base: shift the existing
// hash left by 2 bits, mask to 2K bits, and OR in the new base's 2-bit code.
// N collides with A's code (seq.Code2), by design (spec §9 open question 1).
func NextHash(h uint64, base byte, k int) uint64 {
	return ((h << 2) & Mask(k)) | uint64(seq.Code2[base])
}

// RollingHash computes the hash of the k-mer ending at the last byte of s
// (len(s) must be >= k; only the final k bytes are consumed), by folding
// NextHash over them from a zero seed.
func RollingHash(s []byte, k int) uint64 {
	var h uint64
	start := len(s) - k
	for i := start; i < len(s); i++ {
		h = NextHash(h, s[i], k)
	}
	return h
}
