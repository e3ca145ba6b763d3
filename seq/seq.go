// Package seq holds the in-memory sequence arena (SeqStore) and the
// Alphabet/Orientation primitives shared by the rest of the structural
// variant caller.
//
// Sequences are stored once per chromosome/segment name in a Store and
// referenced afterwards by (key, start, end, mode) rather than by pointer,
// so that a Range never outlives its owner and never needs its own copy of
// the bytes it describes.
package seq

import (
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Mode is the lazy transformation a Range applies to the bytes it reads from
// its owning sequence. It is a sum type, not a boolean pair, because the four
// orientations are mutually exclusive and Normal is a meaningful zero value.
type Mode uint8

const (
	// Normal reads the owning sequence unchanged.
	Normal Mode = iota
	// Reverse reads the owning sequence back to front.
	Reverse
	// Complement reads each base complemented, in original order.
	Complement
	// ReverseComplement reads each base complemented, back to front.
	ReverseComplement
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case Reverse:
		return "Reverse"
	case Complement:
		return "Complement"
	case ReverseComplement:
		return "ReverseComplement"
	default:
		log.Panicf("seq: invalid mode %d", uint8(m))
		return ""
	}
}

// complementTable maps a base to its Watson-Crick pair. N complements to N.
var complementTable [256]byte

func init() {
	for i := range complementTable {
		complementTable[i] = 'N'
	}
	pairs := map[byte]byte{'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C', 'N': 'N'}
	for b, c := range pairs {
		complementTable[b] = c
		complementTable[b+32] = c - 'A' + 'a' // lower-case mirror, just in case
	}
}

// Complement returns the base-wise complement of s, preserving order.
func Complement(s []byte) []byte {
	out := make([]byte, len(s))
	for i, b := range s {
		out[i] = complementTable[b]
	}
	return out
}

// Reverse returns s with byte order reversed.
func Reverse(s []byte) []byte {
	out := make([]byte, len(s))
	for i, b := range s {
		out[len(s)-1-i] = b
	}
	return out
}

// ReverseComplementBytes returns s reverse-complemented in one pass.
func ReverseComplementBytes(s []byte) []byte {
	out := make([]byte, len(s))
	n := len(s)
	for i, b := range s {
		out[n-1-i] = complementTable[b]
	}
	return out
}

// Transform materializes the whole of s under mode. Range.Bytes reads and
// transforms only the span a Range describes; Transform is for
// materializing a whole segment, as overlap.Finder does for each
// orientation and for the one-time segment reorientation.
func Transform(s []byte, mode Mode) []byte {
	switch mode {
	case Normal:
		out := make([]byte, len(s))
		copy(out, s)
		return out
	case Reverse:
		return Reverse(s)
	case Complement:
		return Complement(s)
	case ReverseComplement:
		return ReverseComplementBytes(s)
	default:
		log.Panicf("seq: invalid mode %d", uint8(mode))
		return nil
	}
}

// Code2 is the 2-bit hashing code used by minimizer.RollingHash: A=0, T=1,
// C=2, G=3, N=0. N deliberately collides with A (see spec open question:
// this trades a small rate of false-positive anchors on N-rich regions for
// never having to special-case N in the rolling hash).
var Code2 [256]uint8

func init() {
	Code2['A'], Code2['a'] = 0, 0
	Code2['T'], Code2['t'] = 1, 1
	Code2['C'], Code2['c'] = 2, 2
	Code2['G'], Code2['g'] = 3, 3
	Code2['N'], Code2['n'] = 0, 0
}

// Store is the in-memory mapping from a sequence name (chromosome or
// segment) to its bytes. It is read-only after import, except that
// overlap.Finder may replace one segment's bytes exactly once, in place,
// when that segment is first selected under a non-Normal orientation.
type Store struct {
	seqs  map[string][]byte
	order []string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{seqs: map[string][]byte{}}
}

// Put adds or replaces the sequence named key. Put is how import and the
// one-time segment reorientation both mutate a Store.
func (s *Store) Put(key string, value []byte) {
	if _, ok := s.seqs[key]; !ok {
		s.order = append(s.order, key)
	}
	s.seqs[key] = value
}

// Get returns the bytes for key and whether key is present.
func (s *Store) Get(key string) ([]byte, bool) {
	v, ok := s.seqs[key]
	return v, ok
}

// Len returns len(s.Get(key)), or 0 if key is absent.
func (s *Store) Len(key string) int {
	return len(s.seqs[key])
}

// Names returns the sequence names in import order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ErrUnknownKey is returned by Range methods when the owning key is absent
// from its Store.
var ErrUnknownKey = errors.New("seq: unknown sequence key")

// Range is a half-open interval [Start, End) into the sequence named Key,
// read back through the lazy transform Mode. A Range with an empty Key is a
// coordinate-only record, used by coverage sweeps that don't need to read
// bases.
//
// Invariant: Start <= End; End <= store.Len(Key) whenever Key is non-empty.
type Range struct {
	Key   string
	Start int
	End   int
	Mode  Mode
	// Unknown marks a range whose owning bytes are a synthetic, mostly-N
	// filler rather than real sequence content. Hull propagates it;
	// delta.Store combining records this state on delta.Entry.Unknown,
	// not on a Range.
	Unknown bool
}

// Len returns End-Start.
func (r Range) Len() int { return r.End - r.Start }

// Bytes reads the bytes described by r out of store, applying Mode.
func (r Range) Bytes(store *Store) ([]byte, error) {
	owner, ok := store.Get(r.Key)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKey, "key=%q", r.Key)
	}
	if r.Start < 0 || r.End > len(owner) || r.Start > r.End {
		log.Panicf("seq: invalid range %+v against owner of length %d", r, len(owner))
	}
	raw := owner[r.Start:r.End]
	switch r.Mode {
	case Normal:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	case Reverse:
		return Reverse(raw), nil
	case Complement:
		return Complement(raw), nil
	case ReverseComplement:
		return ReverseComplementBytes(raw), nil
	default:
		log.Panicf("seq: invalid mode %d", uint8(r.Mode))
		return nil, nil
	}
}

// MustBytes is Bytes, panicking on error. It is meant for callers that
// already hold Start/End coordinates proven valid against store (an
// InvariantViolation, per spec §7, if they are not).
func (r Range) MustBytes(store *Store) []byte {
	b, err := r.Bytes(store)
	if err != nil {
		log.Panicf("seq: %v", err)
	}
	return b
}

// Hull returns the smallest Range (in the same Key/Mode) containing both r
// and other.
func Hull(r, other Range) Range {
	if r.Key != other.Key || r.Mode != other.Mode {
		log.Panicf("seq: Hull of incompatible ranges %+v %+v", r, other)
	}
	start, end := r.Start, r.End
	if other.Start < start {
		start = other.Start
	}
	if other.End > end {
		end = other.End
	}
	return Range{Key: r.Key, Start: start, End: end, Mode: r.Mode, Unknown: r.Unknown || other.Unknown}
}

// Less orders ranges lexicographically on (End, Start), matching the anchor
// ordering rule of spec §3: "Equality of anchors uses range_ref as primary
// key (lex on (end, start))".
func (r Range) Less(other Range) bool {
	if r.End != other.End {
		return r.End < other.End
	}
	return r.Start < other.Start
}
