package overlap

import "github.com/biosv/svdetect/seq"

// Coverage implements spec §4.4's reference-coverage sweep: for each
// placement, extend its reference range by the segment's unmatched flanks
// (so a placement anchored near one end of its segment, but whose segment
// continues past the reference's edge, still "pads out" the covered region
// the way a full-length match would), then prefix-sum +1/-1 over
// [0, refLen) and report the fraction of positions touched.
//
// Per spec §4.4: "the paddings are the segment-side paddings adjusted for
// mode (Reverse/RevComp swap left and right)". RangeSeg.Start and
// SegLen-RangeSeg.End are the segment's left/right unmatched flank lengths
// in the segment's own (already-materialized) coordinate space; Reverse
// and ReverseComplement placements read the segment back to front, so the
// flank that is physically on the segment's left reads as the trailing
// (right) flank of the match and vice versa -- hence the swap.
func Coverage(placements []Placement, refLen int) float64 {
	if refLen <= 0 {
		return 0
	}
	diff := make([]int, refLen+1)
	for _, p := range placements {
		leftPad, rightPad := padding(p)
		start := p.RangeRef.Start - leftPad
		end := p.RangeRef.End + rightPad
		if start < 0 {
			start = 0
		}
		if end > refLen {
			end = refLen
		}
		if start >= end {
			continue
		}
		diff[start]++
		diff[end]--
	}

	covered := 0
	running := 0
	for i := 0; i < refLen; i++ {
		running += diff[i]
		if running > 0 {
			covered++
		}
	}
	return float64(covered) / float64(refLen)
}

// padding returns the (left, right) unmatched-flank lengths on the
// reference side that p's segment-side flanks imply, swapped for the two
// orientations that read the segment back to front.
func padding(p Placement) (left, right int) {
	segLeft := p.RangeSeg.Start
	segRight := p.SegLen - p.RangeSeg.End
	if segRight < 0 {
		segRight = 0
	}
	switch p.Mode {
	case seq.Reverse, seq.ReverseComplement:
		return segRight, segLeft
	default:
		return segLeft, segRight
	}
}
