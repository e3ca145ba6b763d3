// Package overlap places segments onto a reference via a minimizer.Index
// (OverlapFinder), merges the resulting hits into larger intervals
// (OverlapMerger), and reports reference coverage (spec §4.2-§4.4).
package overlap

import (
	"github.com/biosv/svdetect/seq"
)

// Anchor is a minimizer hit linking a reference position to a segment
// position, per spec §3: "the subsequence at range_ref of the reference
// matches the subsequence at range_seg of segment key_seg".
type Anchor struct {
	RangeRef seq.Range // Key == reference chromosome, Mode == seq.Normal
	KeySeg   string
	RangeSeg seq.Range // Key == KeySeg
}

// Less orders anchors the way spec §3 requires for a per-chromosome anchor
// set: "range_ref as primary key (lex on (end, start))".
func (a Anchor) Less(b Anchor) bool {
	return a.RangeRef.Less(b.RangeRef)
}
