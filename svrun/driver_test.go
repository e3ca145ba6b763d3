package svrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosv/svdetect/overlap"
	"github.com/biosv/svdetect/seq"
	"github.com/biosv/svdetect/svconfig"
)

func testConfig() svconfig.Config {
	cfg := svconfig.DefaultConfig()
	cfg.Finder.OverlapMinCount = 2
	cfg.Merger.MinimizerMinCount = 1
	cfg.Merger.MinimizerMinLen = 4
	cfg.Merger.MinimizerMaxDiff = 50
	cfg.Delta.DeltaIgnoreLen = 0
	cfg.Delta.DeltaMinLen = 0
	cfg.Delta.DeltaMaxLen = 1000
	cfg.Myers.ChunkSize = 1000
	cfg.Myers.SnakeMinLen = 1
	return cfg
}

func TestBuildIndexCoversReference(t *testing.T) {
	ref := seq.NewStore()
	ref.Put("chr1", []byte("ACGTACGTACGTACGTACGTACGTACGTACGT"))

	d := NewDriver(testConfig())
	idx := d.BuildIndex(ref)
	assert.False(t, idx.Empty())
}

func TestMergeOverlapsKeepsMatchingSegment(t *testing.T) {
	refSeq := []byte("AAAACCCCGGGGTTTTAAAACCCCGGGGTTTT")
	ref := seq.NewStore()
	ref.Put("chr1", refSeq)

	segments := seq.NewStore()
	segments.Put("chr1_seg1", append([]byte{}, refSeq...))

	cfg := testConfig()
	d := NewDriver(cfg)
	idx := d.BuildIndex(ref)

	merged, err := d.MergeOverlaps(idx, ref, segments)
	require.NoError(t, err)
	require.Contains(t, merged.Chromosomes(), "chr1")
	assert.NotEmpty(t, merged.Placements("chr1"))
}

func TestMergeOverlapsFailsOnEmptyIndex(t *testing.T) {
	ref := seq.NewStore()
	ref.Put("chr1", []byte("ACGT"))
	segments := seq.NewStore()

	d := NewDriver(testConfig())
	idx := d.BuildIndex(seq.NewStore()) // no chromosomes indexed
	_, err := d.MergeOverlaps(idx, ref, segments)
	assert.Error(t, err)
}

func TestFindDeltasDetectsInsertedSegmentContent(t *testing.T) {
	left := []byte("AAAACCCCGGGGTTTTAAAACCCCGGGGTTTT")
	right := []byte("TTTTGGGGCCCCAAAATTTTGGGGCCCCAAAA")
	refSeq := append(append([]byte{}, left...), right...)

	inserted := []byte("CTGACTGACTGACTGACTGA")
	segSeq := append(append(append([]byte{}, left...), inserted...), right...)

	ref := seq.NewStore()
	ref.Put("chr1", refSeq)
	segments := seq.NewStore()
	segments.Put("chr1_seg1", segSeq)

	cfg := testConfig()
	d := NewDriver(cfg)
	idx := d.BuildIndex(ref)
	merged, err := d.MergeOverlaps(idx, ref, segments)
	require.NoError(t, err)
	require.NotEmpty(t, merged.Placements("chr1"))

	tables := d.FindDeltas(ref, segments, merged)
	found := false
	for _, e := range tables.Ins.Entries("chr1") {
		if e.RefLen() > 0 {
			found = true
		}
	}
	assert.True(t, found, "expected at least one insertion entry covering the inserted block")
}

func TestFindDeltasFromQueryDetectsInsertion(t *testing.T) {
	left := []byte("AAAACCCCGGGGTTTTAAAACCCCGGGGTTTT")
	right := []byte("TTTTGGGGCCCCAAAATTTTGGGGCCCCAAAA")
	refSeq := append(append([]byte{}, left...), right...)
	querySeq := append(append(append([]byte{}, left...), []byte("CTGACTGACTGACTGACTGA")...), right...)

	ref := seq.NewStore()
	ref.Put("chr1", refSeq)
	query := seq.NewStore()
	query.Put("chr1", querySeq)

	cfg := testConfig()
	d := NewDriver(cfg)
	tables := d.FindDeltasFromQuery(ref, query)

	found := false
	for _, e := range tables.Ins.Entries("chr1") {
		if e.RefLen() > 0 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNewMergedOverlapsFromPlacementsGroupsByChromosome(t *testing.T) {
	refSeq := []byte("AAAACCCCGGGGTTTTAAAACCCCGGGGTTTT")
	ref := seq.NewStore()
	ref.Put("chr1", refSeq)
	segments := seq.NewStore()
	segments.Put("chr1_seg1", append([]byte{}, refSeq...))

	cfg := testConfig()
	d := NewDriver(cfg)
	idx := d.BuildIndex(ref)
	merged, err := d.MergeOverlaps(idx, ref, segments)
	require.NoError(t, err)

	var flat []overlap.Placement
	for _, chrom := range merged.Chromosomes() {
		flat = append(flat, merged.Placements(chrom)...)
	}

	rebuilt := NewMergedOverlapsFromPlacements(flat)
	assert.ElementsMatch(t, merged.Chromosomes(), rebuilt.Chromosomes())
	assert.Equal(t, len(merged.Placements("chr1")), len(rebuilt.Placements("chr1")))
}

func TestFindDeltasIsDeterministicAcrossRuns(t *testing.T) {
	left := []byte("AAAACCCCGGGGTTTTAAAACCCCGGGGTTTT")
	right := []byte("TTTTGGGGCCCCAAAATTTTGGGGCCCCAAAA")
	refSeq := append(append([]byte{}, left...), right...)
	segSeq := append(append(append([]byte{}, left...), []byte("CTGACTGACTGACTGACTGA")...), right...)

	run := func() int {
		ref := seq.NewStore()
		ref.Put("chr1", append([]byte{}, refSeq...))
		segments := seq.NewStore()
		segments.Put("chr1_seg1", append([]byte{}, segSeq...))

		cfg := testConfig()
		d := NewDriver(cfg)
		idx := d.BuildIndex(ref)
		merged, err := d.MergeOverlaps(idx, ref, segments)
		require.NoError(t, err)
		tables := d.FindDeltas(ref, segments, merged)
		return len(tables.Ins.Entries("chr1")) + len(tables.Del.Entries("chr1"))
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}
