package seq

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// ReadFASTA parses the restricted FASTA-like grammar of spec §6: whitespace
// separated (key, value) pairs where the key token begins with '>' (the
// leading '>' is stripped to form the sequence name) and the value is the
// sequence on the following whitespace-separated token. Parsing terminates
// on an empty key, matching the sentinel behavior of the original
// Dna::Import.
//
// Unlike htslib-style FASTA, a record's sequence is a single token: this
// grammar has no multi-line wrapping to reassemble.
func ReadFASTA(r io.Reader) (*Store, error) {
	store := NewStore()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<30)
	sc.Split(bufio.ScanWords)
	for {
		if !sc.Scan() {
			break
		}
		key := sc.Text()
		if len(key) == 0 {
			break
		}
		if !sc.Scan() {
			return nil, errors.New("seq: ReadFASTA: key without a value")
		}
		value := sc.Text()
		if key[0] != '>' {
			return nil, errors.Errorf("seq: ReadFASTA: key %q missing '>' prefix", key)
		}
		store.Put(key[1:], []byte(value))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "seq: ReadFASTA")
	}
	return store, nil
}

// Open wraps r with a gzip.Reader when name ends in ".gz", matching the
// convention interval.NewBED uses for gzip-compressed BED input.
func Open(name string, r io.Reader) (io.Reader, error) {
	if !strings.HasSuffix(name, ".gz") {
		return r, nil
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "seq: opening gzip stream %q", name)
	}
	return gz, nil
}

// WriteFASTA writes store back out in the same grammar ReadFASTA reads.
func WriteFASTA(w io.Writer, store *Store) error {
	bw := bufio.NewWriter(w)
	for _, name := range store.Names() {
		value, _ := store.Get(name)
		if _, err := bw.WriteString(">" + name + " " + string(value) + "\n"); err != nil {
			return errors.Wrap(err, "seq: WriteFASTA")
		}
	}
	return bw.Flush()
}

// ParseUint parses a decimal unsigned integer token, wrapping any error
// with the offending token. The minimizer and overlap side-file readers
// do not call it; they parse their tokens with strconv directly.
func ParseUint(tok string) (uint64, error) {
	v, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "seq: parsing integer token %q", tok)
	}
	return v, nil
}
