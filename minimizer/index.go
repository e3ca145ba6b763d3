package minimizer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/biosv/svdetect/seq"
)

// Entry is one hit stored under a hash bucket: the chromosome it came from,
// and the k-mer's position on that chromosome.
type Entry struct {
	Chrom string
	Range seq.Range // Key == Chrom, Mode == seq.Normal
}

// Index is the hash-multimap u64 -> (chromosome, range_ref) of spec §3.
type Index struct {
	K      int
	Window int
	table  map[uint64][]Entry
}

// NewIndex returns an empty index for the given k-mer length and window
// size.
func NewIndex(k, window int) *Index {
	if k < MinK || k > MaxK {
		log.Panicf("minimizer: k=%d out of range [%d,%d]", k, MinK, MaxK)
	}
	return &Index{K: k, Window: window, table: map[uint64][]Entry{}}
}

// Empty reports whether the index holds no entries, used by
// overlap.Finder to detect the MissingIndex condition of spec §4.2.
func (idx *Index) Empty() bool { return len(idx.table) == 0 }

// Lookup returns the entries stored under hash.
func (idx *Index) Lookup(hash uint64) []Entry {
	return idx.table[hash]
}

func (idx *Index) insert(hash uint64, chrom string, start int) {
	entry := Entry{Chrom: chrom, Range: seq.Range{Key: chrom, Start: start, End: start + idx.K}}
	idx.table[hash] = append(idx.table[hash], entry)
}

// windowEntry is one (hash, position) pair tracked by the sliding-window
// minimum deque while building the index for one chromosome.
type windowEntry struct {
	hash uint64
	pos  int
}

// Build indexes every chromosome in store and returns the resulting Index.
// It implements window-minimizer selection (spec §4.1): a monotonic
// deque keyed by hash value stands in for a min-priority queue, with
// ties broken in favor of the first-seen (lowest-position) entry — any
// consistent tie-break rule is acceptable provided emission stays
// deterministic.
func Build(store *seq.Store, k, window int) *Index {
	idx := NewIndex(k, window)
	for _, chrom := range store.Names() {
		buildChromosome(idx, store, chrom)
	}
	return idx
}

func buildChromosome(idx *Index, store *seq.Store, chrom string) {
	value, _ := store.Get(chrom)
	l := len(value)
	k := idx.K
	if l < k {
		return
	}

	var h uint64
	for i := 0; i < k-1; i++ {
		h = NextHash(h, value[i], k)
	}

	var deque []windowEntry
	lastEmitted := -1
	for i := 0; i <= l-k; i++ {
		h = NextHash(h, value[i+k-1], k)

		// Evict entries that have fallen out of the trailing window.
		for len(deque) > 0 && deque[0].pos <= i-idx.Window {
			deque = deque[1:]
		}
		// Evict from the back any entry strictly larger than h: it can never
		// be the minimum again while h remains in the window. Entries equal
		// to h are kept, so a tie resolves to whichever arrived first.
		for len(deque) > 0 && deque[len(deque)-1].hash > h {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, windowEntry{hash: h, pos: i})

		top := deque[0]
		if top.pos != lastEmitted {
			idx.insert(top.hash, chrom, top.pos)
			lastEmitted = top.pos
		}
	}
}

// WriteIndex writes idx in the side-file grammar of spec §6: one record per
// line, "hash key start end".
func WriteIndex(w io.Writer, idx *Index) error {
	bw := bufio.NewWriter(w)
	for hash, entries := range idx.table {
		for _, e := range entries {
			if _, err := fmt.Fprintf(bw, "%d %s %d %d\n", hash, e.Chrom, e.Range.Start, e.Range.End); err != nil {
				return errors.Wrap(err, "minimizer: WriteIndex")
			}
		}
	}
	return bw.Flush()
}

// ReadIndex parses the index side-file grammar. Parsing terminates on a
// record with hash=0 or an empty key, matching spec §6.
func ReadIndex(r io.Reader, k, window int) (*Index, error) {
	idx := NewIndex(k, window)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<30)
	sc.Split(bufio.ScanWords)
	for {
		hashTok, ok := scanToken(sc)
		if !ok {
			break
		}
		hash, err := strconv.ParseUint(hashTok, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "minimizer: ReadIndex: hash token %q", hashTok)
		}
		keyTok, ok := scanToken(sc)
		if !ok {
			return nil, errors.New("minimizer: ReadIndex: truncated record")
		}
		if hash == 0 || keyTok == "" {
			break
		}
		startTok, ok := scanToken(sc)
		if !ok {
			return nil, errors.New("minimizer: ReadIndex: truncated record")
		}
		endTok, ok := scanToken(sc)
		if !ok {
			return nil, errors.New("minimizer: ReadIndex: truncated record")
		}
		start, err := strconv.Atoi(startTok)
		if err != nil {
			return nil, errors.Wrapf(err, "minimizer: ReadIndex: start token %q", startTok)
		}
		end, err := strconv.Atoi(endTok)
		if err != nil {
			return nil, errors.Wrapf(err, "minimizer: ReadIndex: end token %q", endTok)
		}
		idx.table[hash] = append(idx.table[hash], Entry{Chrom: keyTok, Range: seq.Range{Key: keyTok, Start: start, End: end}})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "minimizer: ReadIndex")
	}
	return idx, nil
}

func scanToken(sc *bufio.Scanner) (string, bool) {
	if !sc.Scan() {
		return "", false
	}
	return sc.Text(), true
}
