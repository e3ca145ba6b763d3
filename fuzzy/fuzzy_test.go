package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultKernel() Kernel {
	return Kernel{
		DPPenalty:       2,
		StrictEqualRate: 0.4,
		FuzzyEqualRate:  0.6,
		GapMaxDiff:      30,
	}
}

func TestLCSubstringExactMatch(t *testing.T) {
	k := defaultKernel()
	length, posA, posB := k.LCSubstring("ACGTACGT", "XXACGTACGTYY")
	assert.Equal(t, 8, length)
	assert.Equal(t, 0, posA)
	assert.Equal(t, 2, posB)
}

func TestLCSubstringNMatchesAnything(t *testing.T) {
	k := defaultKernel()
	length, _, _ := k.LCSubstring("ACGT", "ANGT")
	assert.Equal(t, 4, length)
}

func TestLCSubstringToleratesMismatch(t *testing.T) {
	k := defaultKernel()
	// A single mismatch in the middle of an otherwise long run should not
	// fragment the match down to the longer of the two halves.
	length, _, _ := k.LCSubstring("AAAAAAAAAATAAAAAAAAAA", "AAAAAAAAAACAAAAAAAAAA")
	assert.Greater(t, length, 10)
}

func TestLCSubsequenceBasic(t *testing.T) {
	k := defaultKernel()
	assert.Equal(t, 3, k.LCSubsequence("ABC", "ABC"))
	assert.Equal(t, 0, k.LCSubsequence("", "ABC"))
}

func TestFuzzyCompareSymmetry(t *testing.T) {
	k := defaultKernel()
	pairs := [][2]string{
		{"ACGTACGTACGT", "ACGTACGTACGT"},
		{"ACGTACGTACGT", "TTTTTTTTTTTT"},
		{"ACGTACGTACGT", "ACGTACGAACGT"},
		{"", ""},
		{"AAAA", ""},
	}
	for _, p := range pairs {
		assert.Equal(t, k.FuzzyCompare(p[0], p[1]), k.FuzzyCompare(p[1], p[0]), "pair=%v", p)
	}
}

func TestFuzzyCompareIdenticalStringsMatch(t *testing.T) {
	k := defaultKernel()
	assert.True(t, k.FuzzyCompare("ACGTACGTACGT", "ACGTACGTACGT"))
}

func TestFuzzyCompareUnrelatedStringsDoNotMatch(t *testing.T) {
	k := defaultKernel()
	assert.False(t, k.FuzzyCompare("AAAAAAAAAAAA", "TTTTTTTTTTTT"))
}

func TestFuzzyCompareIntThreshold(t *testing.T) {
	k := defaultKernel()
	assert.True(t, k.FuzzyCompareInt(100, 120))
	assert.False(t, k.FuzzyCompareInt(100, 200))
	assert.True(t, k.FuzzyCompareIntThreshold(100, 101, 1))
	assert.False(t, k.FuzzyCompareIntThreshold(100, 102, 1))
}

func TestFuzzyCompareRangeTrueOverlapBeyondStartProximity(t *testing.T) {
	k := defaultKernel()
	// Starts are 40bp apart (> GapMaxDiff 30) but the ranges truly overlap
	// and their sizes fuzzy-match.
	assert.True(t, k.FuzzyCompareRange(100, 150, 140, 190))
}

func TestFuzzyCompareRangeRejectsSizeMismatch(t *testing.T) {
	k := defaultKernel()
	// Starts coincide, but one range is far longer than the other.
	assert.False(t, k.FuzzyCompareRange(100, 150, 100, 400))
}

func TestFuzzyCompareRangeRejectsDisjointRanges(t *testing.T) {
	k := defaultKernel()
	// Same size, but separated by far more than GapMaxDiff.
	assert.False(t, k.FuzzyCompareRange(0, 50, 500, 550))
}
