package delta

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"

	"github.com/biosv/svdetect/seq"
)

// Store is one typed table of Entry records, keyed by reference
// chromosome. Kind labels the table in WriteStore output ("INS", "DEL",
// "DUP", "INV").
type Store struct {
	Kind string
	cfg  Config
	data map[string][]Entry
}

// NewStore returns an empty Store labeled kind.
func NewStore(kind string, cfg Config) *Store {
	return &Store{Kind: kind, cfg: cfg, data: map[string][]Entry{}}
}

// Chromosomes returns every chromosome the store holds a list for. A list
// may be empty once Filter or post-processing has removed its entries.
func (s *Store) Chromosomes() []string {
	out := make([]string, 0, len(s.data))
	for c := range s.data {
		out = append(out, c)
	}
	return out
}

// Entries returns chrom's entry list. Callers must not retain the slice
// across a subsequent Set/Filter/Merge call on the same chromosome.
func (s *Store) Entries(chrom string) []Entry {
	return s.data[chrom]
}

// Set inserts entry under chrom, combining it into an existing entry when
// possible (spec §4.7 Set/Combine). Entries with a reference span no
// longer than DeltaIgnoreLen are silently dropped (BenignSkip).
func (s *Store) Set(chrom string, entry Entry, store *seq.Store) {
	if entry.RefLen() <= s.cfg.DeltaIgnoreLen {
		return
	}
	list := s.data[chrom]
	for i := len(list) - 1; i >= 0; i-- {
		if s.combine(&list[i], &entry, true, store) {
			s.data[chrom] = list
			log.Debug.Printf("delta: %s: combined into existing entry on %s", s.Kind, chrom)
			return
		}
	}
	s.data[chrom] = append(list, entry)
	log.Debug.Printf("delta: %s: saved new entry [%d,%d) on %s", s.Kind, entry.RefStart, entry.RefEnd, chrom)
}

// overlapsWithSlack reports whether a and b's reference ranges intersect
// once each is padded by slack on both sides.
func overlapsWithSlack(a, b Entry, slack int) bool {
	aStart, aEnd := a.RefStart-slack, a.RefEnd+slack
	return aStart < b.RefEnd && b.RefStart < aEnd
}

// combine attempts to fold value into base in place, per spec §4.7's
// Combine: the reference ranges must overlap within the strict/loose
// slack, and the combined reference span must not exceed DeltaAllowLen.
func (s *Store) combine(base, value *Entry, strict bool, store *seq.Store) bool {
	slack := s.cfg.GapMaxDiff
	if strict {
		slack = s.cfg.GapMinDiff
	}
	if !overlapsWithSlack(*base, *value, slack) {
		return false
	}
	newStart := minInt(base.RefStart, value.RefStart)
	newEnd := maxInt(base.RefEnd, value.RefEnd)
	if newEnd-newStart > s.cfg.DeltaAllowLen {
		return false
	}

	if base.SegKey != "" && base.SegKey == value.SegKey {
		newSegStart := minInt(base.SegStart, value.SegStart)
		newSegEnd := maxInt(base.SegEnd, value.SegEnd)
		if bytes, err := (seq.Range{Key: base.SegKey, Start: newSegStart, End: newSegEnd, Mode: seq.Normal}).Bytes(store); err == nil {
			base.Evidence = bytes
		}
		base.RefStart, base.RefEnd = newStart, newEnd
		base.SegStart, base.SegEnd = newSegStart, newSegEnd
		return true
	}

	// An already-synthetic base that fully contains value contributes
	// nothing new: keep its existing (possibly still-Unknown) evidence.
	if base.Unknown && value.RefStart >= base.RefStart && value.RefEnd <= base.RefEnd {
		return true
	}

	// value's range and content are already present in base verbatim (the
	// same segment evidence reaching Set twice via two overlapping
	// placements): dedupe by content hash before paying for a repaint.
	if value.RefStart >= base.RefStart && value.RefEnd <= base.RefEnd {
		existing := base.Evidence[value.RefStart-base.RefStart : value.RefEnd-base.RefStart]
		if contentKey(value.Evidence) == contentKey(existing) && bytes.Equal(value.Evidence, existing) {
			return true
		}
	}

	base.Evidence = paintSynthetic(newStart, newEnd, []Entry{*base, *value})
	base.RefStart, base.RefEnd = newStart, newEnd
	base.SegKey, base.SegStart, base.SegEnd = "", 0, 0
	base.Unknown = unknownFraction(base.Evidence) >= s.cfg.UnknownRate
	return true
}

// contentKey hashes evidence bytes into the dedupe key combine uses to
// recognize, without a full repaint, that value's content already
// appears in base at the matching offset.
func contentKey(evidence []byte) uint64 {
	return farm.Hash64WithSeed(evidence, 0)
}

// paintSynthetic builds a length (end-start) buffer filled with the
// ambiguity code N, then paints each entry's non-N evidence bytes at
// their reference offset. Later entries in contributors win over earlier
// ones on conflict ("last painter"); N bytes never overwrite an already
// painted non-N byte.
func paintSynthetic(start, end int, contributors []Entry) []byte {
	buf := make([]byte, end-start)
	for i := range buf {
		buf[i] = 'N'
	}
	for _, e := range contributors {
		offset := e.RefStart - start
		for i, b := range e.Evidence {
			if b != 'N' && offset+i >= 0 && offset+i < len(buf) {
				buf[offset+i] = b
			}
		}
	}
	return buf
}

func unknownFraction(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	n := 0
	for _, b := range buf {
		if b == 'N' {
			n++
		}
	}
	return float64(n) / float64(len(buf))
}

// Filter drops entries whose reference length falls outside
// [DeltaMinLen, DeltaMaxLen]. An empty chrom filters every chromosome; an
// empty segKey does not restrict by segment.
func (s *Store) Filter(chrom, segKey string) {
	chroms := []string{chrom}
	if chrom == "" {
		chroms = s.Chromosomes()
	}
	for _, c := range chroms {
		list := s.data[c]
		kept := list[:0]
		for _, e := range list {
			if segKey != "" && e.SegKey != segKey {
				kept = append(kept, e)
				continue
			}
			if e.RefLen() < s.cfg.DeltaMinLen || e.RefLen() > s.cfg.DeltaMaxLen {
				continue
			}
			kept = append(kept, e)
		}
		s.data[c] = kept
	}
}

// Merge folds every entry on chrom fully contained in band into a single
// new entry spanning band, synthesizing evidence from the contributors
// (spec §4.6 step 3). It is a no-op and returns false if no entry is
// contained in band.
func (s *Store) Merge(chrom string, band seq.Range) bool {
	list := s.data[chrom]
	var kept, contained []Entry
	for _, e := range list {
		if e.RefStart >= band.Start && e.RefEnd <= band.End {
			contained = append(contained, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(contained) == 0 {
		return false
	}
	sort.Slice(contained, func(i, j int) bool { return contained[i].RefStart < contained[j].RefStart })
	merged := Entry{
		RefStart: band.Start,
		RefEnd:   band.End,
		Evidence: paintSynthetic(band.Start, band.End, contained),
	}
	merged.Unknown = unknownFraction(merged.Evidence) >= s.cfg.UnknownRate
	s.data[chrom] = append(kept, merged)
	return true
}

// GetDensity computes a sliding-mean density of entries over window and
// reports bands where the mean rises to at least SignalRate and later
// falls below SignalRate-NoiseRate (spec §4.6 step 2 / §4.7 GetDensity).
func (s *Store) GetDensity(chrom string, window seq.Range) (maxDensity float64, bands []seq.Range) {
	return densityOf(s.cfg, chrom, window, s.data[chrom])
}

// CombinedDensity runs the same sliding-mean density sweep as
// Store.GetDensity, but over the union of two stores' entries on chrom
// (spec §4.6 step 2 treats the raw INS and DEL tables as one signal when
// locating elevated bands, even though they are kept in separate typed
// stores). a and b must share the same density configuration.
func CombinedDensity(a, b *Store, chrom string, window seq.Range) (maxDensity float64, bands []seq.Range) {
	combined := append(append([]Entry{}, a.data[chrom]...), b.data[chrom]...)
	return densityOf(a.cfg, chrom, window, combined)
}

func densityOf(cfg Config, chrom string, window seq.Range, entries []Entry) (maxDensity float64, bands []seq.Range) {
	width := window.End - window.Start
	if width <= 0 {
		return 0, nil
	}
	diff := make([]int, width+1)
	for _, e := range entries {
		start, end := e.RefStart-window.Start, e.RefEnd-window.Start
		if end <= 0 || start >= width {
			continue
		}
		if start < 0 {
			start = 0
		}
		if end > width {
			end = width
		}
		diff[start]++
		diff[end]--
	}

	prefix := make([]int, width+1)
	running := 0
	for i := 0; i < width; i++ {
		running += diff[i]
		prefix[i+1] = prefix[i] + running
	}

	w := cfg.DensityWindowSize
	meanAt := func(i int) float64 {
		lo, hi := i-w/2, i+w/2
		if lo < 0 {
			lo = 0
		}
		if hi > width {
			hi = width
		}
		if hi <= lo {
			return 0
		}
		return float64(prefix[hi]-prefix[lo]) / float64(hi-lo)
	}

	bandStart := -1
	for i := 0; i < width; i++ {
		m := meanAt(i)
		if m > maxDensity {
			maxDensity = m
		}
		switch {
		case bandStart < 0 && m >= cfg.SignalRate:
			bandStart = i
		case bandStart >= 0 && m < cfg.SignalRate-cfg.NoiseRate:
			bands = append(bands, seq.Range{Key: chrom, Start: window.Start + bandStart, End: window.Start + i, Mode: seq.Normal})
			bandStart = -1
		}
	}
	if bandStart >= 0 {
		bands = append(bands, seq.Range{Key: chrom, Start: window.Start + bandStart, End: window.Start + width, Mode: seq.Normal})
	}
	return maxDensity, bands
}

// WriteStore writes every entry of s, across all its chromosomes, in the
// side-file grammar: "<kind> <key> <start> <end>" per line.
func WriteStore(w io.Writer, s *Store) error {
	for _, chrom := range s.Chromosomes() {
		for _, e := range s.Entries(chrom) {
			if _, err := fmt.Fprintf(w, "%s %s %d %d\n", s.Kind, chrom, e.RefStart, e.RefEnd); err != nil {
				return err
			}
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
