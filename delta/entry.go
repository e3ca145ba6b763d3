// Package delta implements typed per-chromosome tables of structural-
// variant calls (DeltaStore, spec §4.7) and the cross-table post-
// processing that reclassifies INS/DEL pairs as DUP/INV/TRA (spec §4.8).
package delta

import "github.com/biosv/svdetect/seq"

// Entry is one call against a reference chromosome. SegKey/SegStart/SegEnd
// identify the segment the evidence came from when the entry still traces
// to a single segment; once Store.Set combines evidence from
// two different segments, SegKey is cleared and Evidence becomes a
// synthetic, N-filled buffer (Unknown may then be set).
type Entry struct {
	RefStart, RefEnd int
	SegKey           string
	SegStart, SegEnd int
	Evidence         []byte
	Unknown          bool
}

// RefRange returns e's reference span as a seq.Range over chrom.
func (e Entry) RefRange(chrom string) seq.Range {
	return seq.Range{Key: chrom, Start: e.RefStart, End: e.RefEnd, Mode: seq.Normal}
}

// RefLen returns the length of e's reference span.
func (e Entry) RefLen() int { return e.RefEnd - e.RefStart }

// PairEntry is one TRA call: a reference span on each of two chromosomes.
type PairEntry struct {
	ChromA string
	RangeA Entry
	ChromB string
	RangeB Entry
}
