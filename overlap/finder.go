package overlap

import (
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/biosv/svdetect/minimizer"
	"github.com/biosv/svdetect/seq"
)

// ErrMissingIndex is returned by Finder.Find when the supplied index has no
// entries (spec §4.2 / §7 MissingIndex). It is never returned per-segment:
// a single unmatchable segment is a BenignSkip, not an error.
var ErrMissingIndex = errors.New("overlap: reference index is empty")

// allModes lists the four orientations OverlapFinder tries for every
// segment, in the fixed order spec §4.2 names them.
var allModes = [4]seq.Mode{seq.Normal, seq.Reverse, seq.Complement, seq.ReverseComplement}

// FinderConfig holds the knobs OverlapFinder needs.
type FinderConfig struct {
	// K must match the K the reference index was built with.
	K int
	// OverlapMinCount is the mode-selection floor of spec §4.2.
	OverlapMinCount int
}

// Finder implements spec §4.2's OverlapFinder.
type Finder struct {
	cfg FinderConfig
}

// NewFinder returns a Finder configured by cfg.
func NewFinder(cfg FinderConfig) *Finder {
	return &Finder{cfg: cfg}
}

// Result is the global per-reference anchor set spec §4.2 step 4 appends
// to: one ordered anchor list per reference chromosome.
type Result struct {
	byChrom map[string][]Anchor
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{byChrom: map[string][]Anchor{}}
}

// Add appends an anchor under its reference chromosome.
func (r *Result) Add(a Anchor) {
	r.byChrom[a.RangeRef.Key] = append(r.byChrom[a.RangeRef.Key], a)
}

// Chromosomes returns the reference chromosomes that received at least one
// anchor.
func (r *Result) Chromosomes() []string {
	out := make([]string, 0, len(r.byChrom))
	for c := range r.byChrom {
		out = append(out, c)
	}
	return out
}

// Anchors returns the anchor list for chrom, in append order.
func (r *Result) Anchors(chrom string) []Anchor {
	return r.byChrom[chrom]
}

// Find runs OverlapFinder over every segment in segments, against idx,
// mutating segments in place for any segment whose best orientation isn't
// Normal (the one-time flip of spec §4.2 step 3 / §5 "Shared resources").
func (f *Finder) Find(idx *minimizer.Index, segments *seq.Store) (*Result, error) {
	if idx.Empty() {
		log.Printf("overlap: Find: reference index is empty, not attempting any segment")
		return nil, ErrMissingIndex
	}
	result := NewResult()
	for _, name := range segments.Names() {
		f.findSegment(idx, segments, name, result)
	}
	return result, nil
}

// findSegment is the per-segment body of spec §4.2 steps 1-4. A segment
// that fails to clear OverlapMinCount under every orientation is a
// BenignSkip: it contributes no anchors and does not fail the run.
func (f *Finder) findSegment(idx *minimizer.Index, segments *seq.Store, name string, result *Result) {
	original, _ := segments.Get(name)

	var bestMode seq.Mode
	var bestAnchors []Anchor
	for _, mode := range allModes {
		view := seq.Transform(original, mode)
		anchors := scanKmers(idx, name, mode, view, f.cfg.K)
		if len(anchors) > len(bestAnchors) {
			bestMode, bestAnchors = mode, anchors
		}
	}

	if len(bestAnchors) < f.cfg.OverlapMinCount {
		log.Debug.Printf("overlap: segment %q: best orientation %v only got %d anchors (< %d), skipping",
			name, bestMode, len(bestAnchors), f.cfg.OverlapMinCount)
		return
	}

	if bestMode != seq.Normal {
		segments.Put(name, seq.Transform(original, bestMode))
		// The store now holds the materialized, already-oriented bytes, so
		// RangeSeg must be reinterpreted as Normal against it -- applying
		// bestMode a second time would double-transform.
		for i := range bestAnchors {
			bestAnchors[i].RangeSeg.Mode = seq.Normal
		}
	}
	for _, a := range bestAnchors {
		result.Add(a)
	}
}

// scanKmers slides a K-mer window over view (a materialized orientation of
// a segment) and, for every position whose hash is present in idx, emits
// one anchor per matching reference entry. RangeSeg.Start/End are
// positions within view itself (not back-mapped to the pre-transform
// segment), so that once Finder commits to this mode and replaces the
// segment's stored bytes with view, the anchors remain valid unchanged
// (just reinterpreted as Mode Normal by the caller's bookkeeping -- see
// spec §4.2 step 3).
func scanKmers(idx *minimizer.Index, segName string, mode seq.Mode, view []byte, k int) []Anchor {
	if len(view) < k {
		return nil
	}
	var anchors []Anchor
	var h uint64
	for i := 0; i < k-1; i++ {
		h = minimizer.NextHash(h, view[i], k)
	}
	for i := k - 1; i < len(view); i++ {
		h = minimizer.NextHash(h, view[i], k)
		start := i - k + 1
		for _, e := range idx.Lookup(h) {
			anchors = append(anchors, Anchor{
				RangeRef: e.Range,
				KeySeg:   segName,
				RangeSeg: seq.Range{Key: segName, Start: start, End: start + k, Mode: mode},
			})
		}
	}
	return anchors
}
