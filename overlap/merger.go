package overlap

import (
	"sort"
	"strings"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/minio/highwayhash"

	"github.com/biosv/svdetect/fuzzy"
	"github.com/biosv/svdetect/seq"
)

// MergerConfig holds the knobs OverlapMerger needs.
type MergerConfig struct {
	// K must match the K the reference index and OverlapFinder used; it
	// bounds the head-of-range comparison the Verify invariant performs
	// after each candidate extension.
	K int
	// MinimizerMinCount is the merged-anchor keep threshold.
	MinimizerMinCount int
	// MinimizerMinLen is the merged-anchor length floor (applies to both
	// reference and segment side).
	MinimizerMinLen int
	// MinimizerMaxDiff bounds how differently the reference and segment
	// side of a candidate extension may grow.
	MinimizerMaxDiff int
}

// Placement is one merged anchor interval: a contiguous span on the
// reference matched to a contiguous span on a segment, with Count raw
// anchors folded into it.
type Placement struct {
	SegName  string
	Mode     seq.Mode
	RangeRef seq.Range
	RangeSeg seq.Range
	// SegLen is the full length of the (already-materialized, Normal-mode)
	// segment RangeSeg was cut from. Coverage uses it to derive how many
	// unmatched bases flank RangeSeg on either side.
	SegLen int
	Count  int
}

// groupKey identifies one (segment name, mode) group of anchors being
// merged. A highwayhash digest of the pair (as fusion/postprocess.go keys
// candidate groups by gene pair) would be overkill for the handful of
// groups a single chromosome sees, but callers that bulk-build group maps
// across many chromosomes at once use GroupKey to avoid nested
// map[string]map[Mode]... indirection.
type groupKey struct {
	segName string
	mode    seq.Mode
}

// GroupKey is a collision-resistant digest of (segName, mode), for callers
// that want a single flat map key instead of the nested groupKey struct --
// grounded on fusion/postprocess.go's groupCandidatesByGenePair, which
// hashes a variable-length list of gene-ID pairs into one map key with
// highwayhash for the same reason (flattening a group identity into a
// hashable, fixed-size key).
func GroupKey(segName string, mode seq.Mode) [highwayhash.Size]byte {
	var zeroSeed [highwayhash.Size]byte
	buf := make([]byte, 0, len(segName)+1)
	buf = append(buf, segName...)
	buf = append(buf, byte(mode))
	return highwayhash.Sum(buf, zeroSeed[:])
}

// Merger implements spec §4.3's OverlapMerger.
type Merger struct {
	cfg    MergerConfig
	kernel fuzzy.Kernel
}

// NewMerger returns a Merger configured by cfg. kernel is stored on the
// Merger but not used by Merge: the Verify invariant's head-K comparison
// is exact, not fuzzy.
func NewMerger(cfg MergerConfig, kernel fuzzy.Kernel) *Merger {
	return &Merger{cfg: cfg, kernel: kernel}
}

// Merge collapses the raw anchors for one reference chromosome into
// Placements, per spec §4.3: group by (segment name, mode), incrementally
// extend the first compatible interval in each group, then keep only
// intervals with Count >= MinimizerMinCount and both sides of length >=
// MinimizerMinLen.
func (m *Merger) Merge(anchors []Anchor, store *seq.Store) []Placement {
	groups := map[groupKey][]*Placement{}
	var order []groupKey

	for _, a := range anchors {
		key := groupKey{segName: a.KeySeg, mode: a.RangeSeg.Mode}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = m.extend(groups[key], a, store)
	}

	var out []Placement
	for _, key := range order {
		for _, p := range groups[key] {
			if p.Count >= m.cfg.MinimizerMinCount &&
				p.RangeRef.Len() >= m.cfg.MinimizerMinLen &&
				p.RangeSeg.Len() >= m.cfg.MinimizerMinLen {
				out = append(out, *p)
			}
		}
	}
	return out
}

// extend attempts to fold anchor a into the first placement in group that
// accepts it; if none does, it starts a new placement with Count 1.
func (m *Merger) extend(group []*Placement, a Anchor, store *seq.Store) []*Placement {
	for _, p := range group {
		if m.accepts(p, a, store) {
			p.RangeRef = seq.Hull(p.RangeRef, a.RangeRef)
			p.RangeSeg = seq.Hull(p.RangeSeg, a.RangeSeg)
			p.Count++
			return group
		}
	}
	return append(group, &Placement{
		SegName:  a.KeySeg,
		Mode:     a.RangeSeg.Mode,
		RangeRef: a.RangeRef,
		RangeSeg: a.RangeSeg,
		SegLen:   store.Len(a.KeySeg),
		Count:    1,
	})
}

// accepts implements spec §4.3's extension test: the reference and segment
// hulls must grow by similar amounts, and the Verify invariant (shared
// leading K-mer) must hold after extension.
func (m *Merger) accepts(p *Placement, a Anchor, store *seq.Store) bool {
	mergedRef := seq.Hull(p.RangeRef, a.RangeRef)
	mergedSeg := seq.Hull(p.RangeSeg, a.RangeSeg)

	deltaRef := mergedRef.Len() - p.RangeRef.Len()
	deltaSeg := mergedSeg.Len() - p.RangeSeg.Len()
	diff := deltaRef - deltaSeg
	if diff < 0 {
		diff = -diff
	}
	if diff > m.cfg.MinimizerMaxDiff {
		return false
	}

	return m.verifyHeadK(mergedRef, mergedSeg, store)
}

// verifyHeadK checks the Verify invariant of spec §3: "for every anchor,
// value_at(range_ref).first_HASH_SIZE == value_at(range_seg).first_HASH_SIZE".
// A K of 0 (unset in tests that construct placements by hand) skips the
// check.
func (m *Merger) verifyHeadK(ref, segRange seq.Range, store *seq.Store) bool {
	k := m.cfg.K
	if k == 0 {
		return true
	}
	if ref.Len() < k || segRange.Len() < k {
		return true
	}
	refHead := seq.Range{Key: ref.Key, Start: ref.Start, End: ref.Start + k, Mode: ref.Mode}
	segHead := seq.Range{Key: segRange.Key, Start: segRange.Start, End: segRange.Start + k, Mode: segRange.Mode}
	refBytes, err := refHead.Bytes(store)
	if err != nil {
		return true
	}
	segBytes, err := segHead.Bytes(store)
	if err != nil {
		return true
	}
	return string(refBytes) == string(segBytes)
}

// baseName splits a segment name of the form "<base>_<suffix>" per spec
// §4.3's chain-selection convention. Malformed names (no underscore, or
// more than one) are logged and reported with ok=false; SelectChain then
// keeps their placements out of chain selection, per spec §9 open
// question 4: "malformed names should log and be skipped rather than
// crash."
func baseName(segName string) (base string, ok bool) {
	parts := strings.Split(segName, "_")
	if len(parts) != 2 {
		log.Debug.Printf("overlap: segment name %q does not match <base>_<suffix>, skipping chain selection", segName)
		return "", false
	}
	return parts[0], true
}

// baseKey hashes a base name into the chain-selection map key, the same
// way fusion/kmer_index.go hashes k-mers with farm.Hash64WithSeed rather
// than keying its index by the raw string.
func baseKey(base string) uint64 {
	return farm.Hash64WithSeed([]byte(base), 0)
}

// SelectChain implements spec §4.3's chain-selection rule: when segment
// names share a base name (e.g. seg_1, seg_2), keep only the placements
// whose base name covers the largest fraction of refLen, dropping all
// others. Segments whose name doesn't fit the <base>_<suffix> convention
// are left untouched (they never compete against anything).
func SelectChain(placements []Placement, refLen int) []Placement {
	byBase := map[uint64][]Placement{}
	baseOf := map[uint64]string{}
	var order []uint64
	var unconventional []Placement

	for _, p := range placements {
		base, ok := baseName(p.SegName)
		if !ok {
			unconventional = append(unconventional, p)
			continue
		}
		key := baseKey(base)
		if _, seen := byBase[key]; !seen {
			order = append(order, key)
			baseOf[key] = base
		}
		byBase[key] = append(byBase[key], p)
	}

	if len(order) <= 1 {
		return placements
	}

	sort.Slice(order, func(i, j int) bool { return baseOf[order[i]] < baseOf[order[j]] })
	var bestKey uint64
	bestCoverage := -1.0
	for _, key := range order {
		c := Coverage(byBase[key], refLen)
		if c > bestCoverage {
			bestCoverage, bestKey = c, key
		}
	}

	out := append([]Placement{}, unconventional...)
	out = append(out, byBase[bestKey]...)
	return out
}
