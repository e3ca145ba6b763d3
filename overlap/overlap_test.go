package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosv/svdetect/fuzzy"
	"github.com/biosv/svdetect/seq"
)

func defaultMergerConfig() MergerConfig {
	return MergerConfig{
		K:                0,
		MinimizerMinCount: 2,
		MinimizerMinLen:   3,
		MinimizerMaxDiff:  2,
	}
}

func refRange(start, end int) seq.Range {
	return seq.Range{Key: "chr1", Start: start, End: end, Mode: seq.Normal}
}

func segRange(start, end int, mode seq.Mode) seq.Range {
	return seq.Range{Key: "seg1", Start: start, End: end, Mode: mode}
}

func TestAnchorLess(t *testing.T) {
	a := Anchor{RangeRef: refRange(0, 5)}
	b := Anchor{RangeRef: refRange(10, 15)}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestMergeCollapsesAdjacentAnchors(t *testing.T) {
	store := seq.NewStore()
	store.Put("seg1", []byte("ACGTACGTACGTACGT"))

	anchors := []Anchor{
		{RangeRef: refRange(0, 3), KeySeg: "seg1", RangeSeg: segRange(0, 3, seq.Normal)},
		{RangeRef: refRange(2, 5), KeySeg: "seg1", RangeSeg: segRange(2, 5, seq.Normal)},
		{RangeRef: refRange(4, 7), KeySeg: "seg1", RangeSeg: segRange(4, 7, seq.Normal)},
	}

	m := NewMerger(defaultMergerConfig(), fuzzy.Kernel{})
	placements := m.Merge(anchors, store)

	require.Len(t, placements, 1)
	assert.Equal(t, 0, placements[0].RangeRef.Start)
	assert.Equal(t, 7, placements[0].RangeRef.End)
	assert.Equal(t, 3, placements[0].Count)
}

func TestMergeSplitsOnExcessiveGrowthDiff(t *testing.T) {
	store := seq.NewStore()
	store.Put("seg1", []byte("ACGTACGTACGTACGTACGTACGTACGT"))

	cfg := defaultMergerConfig()
	cfg.MinimizerMaxDiff = 0
	m := NewMerger(cfg, fuzzy.Kernel{})

	anchors := []Anchor{
		{RangeRef: refRange(0, 3), KeySeg: "seg1", RangeSeg: segRange(0, 3, seq.Normal)},
		// reference grows by 20 but segment only grows by 3: should not merge.
		{RangeRef: refRange(20, 23), KeySeg: "seg1", RangeSeg: segRange(3, 6, seq.Normal)},
	}
	placements := m.Merge([]Anchor{anchors[0], anchors[0], anchors[1], anchors[1]}, store)
	assert.Len(t, placements, 2)
}

func TestMergePrunesBelowThresholds(t *testing.T) {
	store := seq.NewStore()
	store.Put("seg1", []byte("ACGTACGT"))
	cfg := defaultMergerConfig()
	cfg.MinimizerMinCount = 5
	m := NewMerger(cfg, fuzzy.Kernel{})

	anchors := []Anchor{
		{RangeRef: refRange(0, 3), KeySeg: "seg1", RangeSeg: segRange(0, 3, seq.Normal)},
	}
	placements := m.Merge(anchors, store)
	assert.Empty(t, placements)
}

func TestMergeGroupsBySegmentAndMode(t *testing.T) {
	store := seq.NewStore()
	store.Put("seg1", []byte("ACGTACGTACGTACGT"))

	anchors := []Anchor{
		{RangeRef: refRange(0, 3), KeySeg: "seg1", RangeSeg: segRange(0, 3, seq.Normal)},
		{RangeRef: refRange(2, 5), KeySeg: "seg1", RangeSeg: segRange(2, 5, seq.Normal)},
		{RangeRef: refRange(0, 3), KeySeg: "seg1", RangeSeg: segRange(0, 3, seq.Reverse)},
		{RangeRef: refRange(2, 5), KeySeg: "seg1", RangeSeg: segRange(2, 5, seq.Reverse)},
	}
	m := NewMerger(defaultMergerConfig(), fuzzy.Kernel{})
	placements := m.Merge(anchors, store)
	require.Len(t, placements, 2)
}

func TestVerifyHeadKRejectsMismatchedHead(t *testing.T) {
	store := seq.NewStore()
	store.Put("chr1", []byte("AAAAAAAAAA"))
	store.Put("seg1", []byte("TTTTACGTACGTACGTACGT"))

	anchors := []Anchor{
		{RangeRef: refRange(0, 4), KeySeg: "seg1", RangeSeg: segRange(0, 4, seq.Normal)},
		{RangeRef: refRange(4, 8), KeySeg: "seg1", RangeSeg: segRange(8, 12, seq.Normal)},
	}

	// With the head check disabled (K=0) the two anchors merge freely.
	withoutCheck := defaultMergerConfig()
	withoutCheck.MinimizerMaxDiff = 100
	placements := NewMerger(withoutCheck, fuzzy.Kernel{}).Merge(anchors, store)
	require.Len(t, placements, 1)
	assert.Equal(t, 2, placements[0].Count)

	// With K=4, the merged head no longer matches between reference
	// ("AAAA") and segment ("TTTT"), so the extension is rejected and
	// neither resulting singleton placement clears MinimizerMinCount.
	withCheck := defaultMergerConfig()
	withCheck.K = 4
	withCheck.MinimizerMaxDiff = 100
	placements = NewMerger(withCheck, fuzzy.Kernel{}).Merge(anchors, store)
	assert.Empty(t, placements)
}

func TestSelectChainKeepsOnlyBestCoveringBase(t *testing.T) {
	placements := []Placement{
		{SegName: "foo_1", RangeRef: refRange(0, 5), SegLen: 5},
		{SegName: "foo_2", RangeRef: refRange(90, 95), SegLen: 5},
		{SegName: "bar_1", RangeRef: refRange(0, 50), SegLen: 50},
	}
	out := SelectChain(placements, 100)
	for _, p := range out {
		assert.Equal(t, "bar_1", p.SegName)
	}
}

func TestSelectChainLeavesUnconventionalNamesAlone(t *testing.T) {
	placements := []Placement{
		{SegName: "plainsegment", RangeRef: refRange(0, 5), SegLen: 5},
	}
	out := SelectChain(placements, 100)
	assert.Len(t, out, 1)
}

func TestSelectChainNoopWithOneBase(t *testing.T) {
	placements := []Placement{
		{SegName: "foo_1", RangeRef: refRange(0, 5), SegLen: 5},
		{SegName: "foo_2", RangeRef: refRange(5, 10), SegLen: 5},
	}
	out := SelectChain(placements, 100)
	assert.Len(t, out, 2)
}

func TestCoverageFullMatchIsOne(t *testing.T) {
	placements := []Placement{
		{RangeRef: refRange(0, 10), RangeSeg: segRange(0, 10, seq.Normal), SegLen: 10},
	}
	assert.Equal(t, 1.0, Coverage(placements, 10))
}

func TestCoverageEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Coverage(nil, 10))
}

func TestCoverageBoundsInUnitInterval(t *testing.T) {
	placements := []Placement{
		{RangeRef: refRange(0, 5), RangeSeg: segRange(0, 5, seq.Normal), SegLen: 5},
		{RangeRef: refRange(3, 8), RangeSeg: segRange(0, 5, seq.Normal), SegLen: 5},
	}
	c := Coverage(placements, 10)
	assert.GreaterOrEqual(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
}

func TestCoveragePadsForUnmatchedSegmentFlank(t *testing.T) {
	// The anchor only covers segment bytes [2,10) of a 10-byte segment, so
	// 2 bases of left flank exist on the segment; Normal mode pads the
	// reference's left side by that much.
	placements := []Placement{
		{RangeRef: refRange(5, 13), RangeSeg: segRange(2, 10, seq.Normal), SegLen: 10},
	}
	c := Coverage(placements, 20)
	// Covered should be [3, 13) = 10 bases (5-2 .. 13+0), not [5,13) = 8.
	assert.InDelta(t, 10.0/20.0, c, 1e-9)
}

func TestCoverageSwapsPaddingForReverseMode(t *testing.T) {
	placements := []Placement{
		{RangeRef: refRange(5, 13), RangeSeg: segRange(2, 10, seq.Reverse), SegLen: 10},
	}
	c := Coverage(placements, 20)
	// Same flank sizes as the Normal case, but swapped: left pad becomes 0
	// (segRight), right pad becomes 2 (segLeft). Covered = [5,15) = 10.
	assert.InDelta(t, 10.0/20.0, c, 1e-9)
}
