// Package svrun orchestrates the three user-selectable phases spec §2/§6
// name -- build index, merge segments, find deltas -- against a single
// svconfig.Config, in the style of fusion.DetectFusion's phase pipeline in
// cmd/bio-fusion/main.go (stitch, kmerize, match, postprocess, filter).
package svrun

import (
	"sync"

	"github.com/grailbio/base/log"

	"github.com/biosv/svdetect/delta"
	"github.com/biosv/svdetect/minimizer"
	"github.com/biosv/svdetect/myers"
	"github.com/biosv/svdetect/overlap"
	"github.com/biosv/svdetect/seq"
	"github.com/biosv/svdetect/svconfig"
)

// Driver runs the three phases against one configuration.
type Driver struct {
	cfg svconfig.Config
}

// NewDriver returns a Driver configured by cfg.
func NewDriver(cfg svconfig.Config) *Driver {
	return &Driver{cfg: cfg}
}

// BuildIndex runs spec §4.1: it builds the window-minimizer index over
// every chromosome in ref.
func (d *Driver) BuildIndex(ref *seq.Store) *minimizer.Index {
	return minimizer.Build(ref, d.cfg.HashSize, d.cfg.WindowSize)
}

// MergedOverlaps is the per-chromosome result of Driver.MergeOverlaps: the
// chain-selected Placements spec §4.3's SelectChain keeps, grouped by
// reference chromosome.
type MergedOverlaps struct {
	mu      sync.Mutex
	byChrom map[string][]overlap.Placement
}

func newMergedOverlaps() *MergedOverlaps {
	return &MergedOverlaps{byChrom: map[string][]overlap.Placement{}}
}

// NewMergedOverlapsFromPlacements rebuilds a MergedOverlaps from a flat
// placement list, grouping by each placement's reference chromosome. It is
// how the CLI's -s phase reconstitutes MergeOverlaps' result after reading
// it back from the overlaps side-file (spec §6).
func NewMergedOverlapsFromPlacements(placements []overlap.Placement) *MergedOverlaps {
	m := newMergedOverlaps()
	for _, p := range placements {
		chrom := p.RangeRef.Key
		m.byChrom[chrom] = append(m.byChrom[chrom], p)
	}
	return m
}

func (m *MergedOverlaps) set(chrom string, placements []overlap.Placement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byChrom[chrom] = placements
}

// Chromosomes returns the reference chromosomes that received at least one
// anchor. A chromosome's placement list may be empty when no placement
// survived merging and chain selection.
func (m *MergedOverlaps) Chromosomes() []string {
	out := make([]string, 0, len(m.byChrom))
	for c := range m.byChrom {
		out = append(out, c)
	}
	return out
}

// Placements returns chrom's chain-selected placements.
func (m *MergedOverlaps) Placements(chrom string) []overlap.Placement {
	return m.byChrom[chrom]
}

// MergeOverlaps runs spec §4.2 (OverlapFinder) then §4.3 (OverlapMerger +
// chain selection) per reference chromosome. Per §5, chromosomes are
// independent after import: when Concurrency > 1, they are processed by a
// bounded worker pool, mirroring the per-shard fan-out of
// fusion/kmer_index.go's initShard.
func (d *Driver) MergeOverlaps(idx *minimizer.Index, ref *seq.Store, segments *seq.Store) (*MergedOverlaps, error) {
	finder := overlap.NewFinder(d.cfg.Finder)
	result, err := finder.Find(idx, segments)
	if err != nil {
		return nil, err
	}
	merger := overlap.NewMerger(d.cfg.Merger, d.cfg.Fuzzy)
	merged := newMergedOverlaps()

	process := func(chrom string) {
		anchors := result.Anchors(chrom)
		placements := merger.Merge(anchors, segments)
		chain := overlap.SelectChain(placements, ref.Len(chrom))
		merged.set(chrom, chain)
		log.Debug.Printf("svrun: MergeOverlaps: %s: %d anchors, %d placements kept", chrom, len(anchors), len(chain))
	}

	d.fanOut(result.Chromosomes(), process)
	return merged, nil
}

// FindDeltas runs spec §4.6's from-segments path per reference chromosome
// over the placements MergeOverlaps kept, then spec §4.8's
// DeltaPostProcess over the combined result.
func (d *Driver) FindDeltas(ref *seq.Store, segments *seq.Store, merged *MergedOverlaps) *delta.Tables {
	tables := &delta.Tables{
		Ins: delta.NewStore("INS", d.cfg.Delta),
		Del: delta.NewStore("DEL", d.cfg.Delta),
		Dup: delta.NewStore("DUP", d.cfg.Delta),
		Inv: delta.NewStore("INV", d.cfg.Delta),
	}
	engine := myers.NewEngine(d.cfg.Myers)

	// Tables' Stores are map[string][]Entry keyed by chromosome: concurrent
	// writes under distinct keys still race in Go's map implementation, so
	// every table mutation is serialized behind tablesMu. The engine's
	// per-placement diffing (the dominant cost) runs outside the lock.
	var tablesMu sync.Mutex
	process := func(chrom string) {
		d.findChromosomeDeltas(chrom, ref, segments, merged.Placements(chrom), tables, engine, &tablesMu)
	}
	d.fanOut(merged.Chromosomes(), process)

	delta.PostProcess(tables, ref, d.cfg.Fuzzy)
	return tables
}

// FindDeltasFromQuery runs the full chunked Myers engine (spec §4.5)
// directly between ref and an assembled query, one chromosome at a time,
// skipping the segment-merging phases entirely -- the CLI's -s phase takes
// this path when -sv names an already-assembled query FASTA instead of a
// segment set (spec §6).
func (d *Driver) FindDeltasFromQuery(ref *seq.Store, query *seq.Store) *delta.Tables {
	tables := &delta.Tables{
		Ins: delta.NewStore("INS", d.cfg.Delta),
		Del: delta.NewStore("DEL", d.cfg.Delta),
		Dup: delta.NewStore("DUP", d.cfg.Delta),
		Inv: delta.NewStore("INV", d.cfg.Delta),
	}
	engine := myers.NewEngine(d.cfg.Myers)

	var tablesMu sync.Mutex
	process := func(chrom string) {
		refBytes, ok := ref.Get(chrom)
		if !ok {
			return
		}
		queryBytes, ok := query.Get(chrom)
		if !ok {
			log.Debug.Printf("svrun: FindDeltasFromQuery: %s: no matching query chromosome, skipping", chrom)
			return
		}
		calls := engine.Diff(refBytes, queryBytes)

		tablesMu.Lock()
		defer tablesMu.Unlock()
		for _, c := range calls {
			switch c.Kind {
			case myers.Insertion:
				tables.Ins.Set(chrom, delta.Entry{RefStart: c.RefStart, RefEnd: c.RefEnd, Evidence: c.Evidence}, query)
			case myers.Deletion:
				tables.Del.Set(chrom, delta.Entry{RefStart: c.RefStart, RefEnd: c.RefEnd, Evidence: c.Evidence}, query)
			}
		}
		tables.Ins.Filter(chrom, "")
		tables.Del.Filter(chrom, "")

		window := seq.Range{Key: chrom, Start: 0, End: len(refBytes)}
		_, bands := delta.CombinedDensity(tables.Ins, tables.Del, chrom, window)
		for _, band := range bands {
			tables.Ins.Merge(chrom, band)
			tables.Del.Merge(chrom, band)
		}
	}
	d.fanOut(ref.Names(), process)

	delta.PostProcess(tables, ref, d.cfg.Fuzzy)
	return tables
}

// findChromosomeDeltas implements spec §4.6: deduplicate placements by
// segment name (first one wins), diff each kept placement's reference
// slice against the entirety of its segment, filter the resulting raw
// entries, then locate and merge elevated-density bands.
func (d *Driver) findChromosomeDeltas(chrom string, ref *seq.Store, segments *seq.Store, placements []overlap.Placement, tables *delta.Tables, engine *myers.Engine, tablesMu *sync.Mutex) {
	refBytes, ok := ref.Get(chrom)
	if !ok {
		return
	}

	type placementCalls struct {
		placement overlap.Placement
		calls     []myers.Call
	}
	seen := map[string]bool{}
	var diffed []placementCalls
	for _, p := range placements {
		if seen[p.SegName] {
			continue
		}
		seen[p.SegName] = true

		segBytes, ok := segments.Get(p.SegName)
		if !ok {
			continue
		}
		calls := engine.DiffSlice(refBytes, p.RangeRef.Start, p.RangeRef.Len(), segBytes)
		diffed = append(diffed, placementCalls{p, calls})
	}

	tablesMu.Lock()
	defer tablesMu.Unlock()

	for _, pc := range diffed {
		applyCalls(tables, chrom, pc.placement, segments, pc.calls)
	}

	tables.Ins.Filter(chrom, "")
	tables.Del.Filter(chrom, "")

	window := seq.Range{Key: chrom, Start: 0, End: len(refBytes)}
	_, bands := delta.CombinedDensity(tables.Ins, tables.Del, chrom, window)
	for _, band := range bands {
		tables.Ins.Merge(chrom, band)
		tables.Del.Merge(chrom, band)
	}
}

// applyCalls records one placement's diff calls into the INS/DEL tables.
// Insertion entries carry SegKey/SegStart/SegEnd so later calls against
// the same segment can hull-extend (spec §4.7 Combine); deletion evidence
// is the reference substring the engine already returned, so a deletion
// entry never references a segment (Open Question 2: reproduced
// literally).
func applyCalls(tables *delta.Tables, chrom string, p overlap.Placement, segments *seq.Store, calls []myers.Call) {
	segPos := 0
	prevRefEnd := p.RangeRef.Start
	for _, c := range calls {
		segPos += c.RefStart - prevRefEnd
		switch c.Kind {
		case myers.Insertion:
			segStart := segPos
			segPos += len(c.Evidence)
			tables.Ins.Set(chrom, delta.Entry{
				RefStart: c.RefStart,
				RefEnd:   c.RefEnd,
				SegKey:   p.SegName,
				SegStart: segStart,
				SegEnd:   segPos,
				Evidence: c.Evidence,
			}, segments)
		case myers.Deletion:
			tables.Del.Set(chrom, delta.Entry{
				RefStart: c.RefStart,
				RefEnd:   c.RefEnd,
				Evidence: c.Evidence,
			}, segments)
		}
		prevRefEnd = c.RefEnd
	}
}

// fanOut runs process once per chromosome. Concurrency == 1 (the default)
// runs sequentially in input order for deterministic logging; any higher
// value bounds a worker pool at that width.
func (d *Driver) fanOut(chromosomes []string, process func(chrom string)) {
	if d.cfg.Concurrency <= 1 {
		for _, c := range chromosomes {
			process(c)
		}
		return
	}

	sem := make(chan struct{}, d.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, c := range chromosomes {
		wg.Add(1)
		sem <- struct{}{}
		go func(chrom string) {
			defer wg.Done()
			defer func() { <-sem }()
			process(chrom)
		}(c)
	}
	wg.Wait()
}
