package delta

import (
	"github.com/biosv/svdetect/fuzzy"
	"github.com/biosv/svdetect/seq"
)

// Tables bundles the five typed stores DeltaPostProcess reclassifies
// entries across (spec §4.8).
type Tables struct {
	Ins *Store
	Del *Store
	Dup *Store
	Inv *Store
	Tra []PairEntry
}

// PostProcess runs DUP, then INV, then TRA detection, in that order
// (spec §4.8): each pass only ever moves entries out of Ins/Del, so later
// passes see a strictly smaller candidate set. It is idempotent: running
// it again against its own output finds nothing left to reclassify.
func PostProcess(t *Tables, store *seq.Store, kernel fuzzy.Kernel) {
	findDup(t, store, kernel)
	findInv(t, kernel)
	t.Tra = append(t.Tra, findTra(t, kernel)...)
}

// findDup moves an insertion to the DUP table when its evidence fuzzy-
// matches the reference content immediately preceding it (spec §4.8 DUP
// detection: tandem duplications show up as an "insertion" whose content
// is just another copy of the preceding reference bytes).
func findDup(t *Tables, store *seq.Store, kernel fuzzy.Kernel) {
	for _, chrom := range t.Ins.Chromosomes() {
		list := t.Ins.data[chrom]
		kept := list[:0]
		for _, e := range list {
			l := e.RefLen()
			if e.RefStart < l {
				kept = append(kept, e)
				continue
			}
			prevRange := seq.Range{Key: chrom, Start: e.RefStart - l, End: e.RefStart, Mode: seq.Normal}
			prevBytes, err := prevRange.Bytes(store)
			if err != nil {
				kept = append(kept, e)
				continue
			}
			if kernel.FuzzyCompare(string(e.Evidence), string(prevBytes)) {
				t.Dup.data[chrom] = append(t.Dup.data[chrom], Entry{
					RefStart: e.RefStart - l,
					RefEnd:   e.RefStart,
					SegKey:   e.SegKey,
					SegStart: e.SegStart,
					SegEnd:   e.SegEnd,
					Evidence: e.Evidence,
					Unknown:  e.Unknown,
				})
				continue
			}
			kept = append(kept, e)
		}
		t.Ins.data[chrom] = kept
	}
}

// findInv pairs an insertion with a deletion on the same chromosome whose
// reference ranges fuzzy-overlap (size fuzzy-match plus a true overlap
// within GapMaxDiff slack, per range.cpp's FuzzyCompare(Range, Range))
// and whose content reverse-complements each other: the deletion moves
// into the INV table and the insertion is dropped (spec §4.8 INV
// detection).
func findInv(t *Tables, kernel fuzzy.Kernel) {
	for _, chrom := range t.Ins.Chromosomes() {
		insList := t.Ins.data[chrom]
		keptIns := insList[:0]
		for _, ins := range insList {
			matched := false
			delList := t.Del.data[chrom]
			for j, del := range delList {
				if !kernel.FuzzyCompareRange(ins.RefStart, ins.RefEnd, del.RefStart, del.RefEnd) {
					continue
				}
				if kernel.FuzzyCompare(string(ins.Evidence), string(seq.ReverseComplementBytes(del.Evidence))) {
					t.Inv.data[chrom] = append(t.Inv.data[chrom], del)
					t.Del.data[chrom] = append(append([]Entry{}, delList[:j]...), delList[j+1:]...)
					matched = true
					break
				}
			}
			if !matched {
				keptIns = append(keptIns, ins)
			}
		}
		t.Ins.data[chrom] = keptIns
	}
}

// findTra pairs insertions and deletions across chromosomes into TRA
// calls, in the two passes spec §4.8 describes: first group same-
// chromosome INS/DEL pairs whose lengths fuzzy-match into temporary
// lists, then pair across those lists by evidence content.
func findTra(t *Tables, kernel fuzzy.Kernel) []PairEntry {
	var insCache, delCache []struct {
		chrom string
		entry Entry
	}

	for _, chrom := range t.Ins.Chromosomes() {
		insList := t.Ins.data[chrom]
		keptIns := insList[:0]
		for _, ins := range insList {
			matched := false
			delList := t.Del.data[chrom]
			for j, del := range delList {
				if kernel.FuzzyCompareInt(ins.RefLen(), del.RefLen()) {
					insCache = append(insCache, struct {
						chrom string
						entry Entry
					}{chrom, ins})
					delCache = append(delCache, struct {
						chrom string
						entry Entry
					}{chrom, del})
					t.Del.data[chrom] = append(append([]Entry{}, delList[:j]...), delList[j+1:]...)
					matched = true
					break
				}
			}
			if !matched {
				keptIns = append(keptIns, ins)
			}
		}
		t.Ins.data[chrom] = keptIns
	}

	var pairs []PairEntry
	delUsed := make([]bool, len(delCache))
	var insRemaining []struct {
		chrom string
		entry Entry
	}
	for _, insEntry := range insCache {
		matched := false
		for j, delEntry := range delCache {
			if delUsed[j] {
				continue
			}
			if kernel.FuzzyCompare(string(insEntry.entry.Evidence), string(delEntry.entry.Evidence)) {
				pairs = append(pairs, PairEntry{
					ChromA: insEntry.chrom,
					RangeA: insEntry.entry,
					ChromB: delEntry.chrom,
					RangeB: delEntry.entry,
				})
				delUsed[j] = true
				matched = true
				break
			}
		}
		if !matched {
			insRemaining = append(insRemaining, insEntry)
		}
	}

	for _, e := range insRemaining {
		t.Ins.data[e.chrom] = append(t.Ins.data[e.chrom], e.entry)
	}
	for j, e := range delCache {
		if !delUsed[j] {
			t.Del.data[e.chrom] = append(t.Del.data[e.chrom], e.entry)
		}
	}

	return pairs
}
