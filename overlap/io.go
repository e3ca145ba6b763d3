package overlap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/biosv/svdetect/seq"
)

// WriteFile writes placements in the overlaps side-file grammar: one
// record per placement, two whitespace-separated fields groups per line --
// "key_ref start_ref end_ref key_seg start_seg end_seg". Orientation is
// encoded on the segment-side coordinates: negative start/end encodes
// Complement, start_seg > end_seg encodes Reverse, and both encodes
// ReverseComplement.
func WriteFile(w io.Writer, placements []Placement) error {
	bw := bufio.NewWriter(w)
	for _, p := range placements {
		startSeg, endSeg := encodeMode(p.RangeSeg.Start, p.RangeSeg.End, p.Mode)
		if _, err := fmt.Fprintf(bw, "%s %d %d %s %d %d\n",
			p.RangeRef.Key, p.RangeRef.Start, p.RangeRef.End,
			p.SegName, startSeg, endSeg); err != nil {
			return errors.Wrap(err, "overlap: WriteFile")
		}
	}
	return bw.Flush()
}

// encodeMode maps (start, end, mode) to the signed/ordered pair the side-
// file grammar uses to recover mode on read.
func encodeMode(start, end int, mode seq.Mode) (int, int) {
	switch mode {
	case seq.Normal:
		return start, end
	case seq.Complement:
		return -start, -end
	case seq.Reverse:
		return end, start
	case seq.ReverseComplement:
		return -end, -start
	default:
		return start, end
	}
}

// decodeMode recovers (start, end, mode) from the encoded pair read off
// disk.
func decodeMode(a, b int) (start, end int, mode seq.Mode) {
	negative := a < 0 || b < 0
	if negative {
		a, b = -a, -b
	}
	reversed := a > b
	if reversed {
		a, b = b, a
	}
	switch {
	case negative && reversed:
		return a, b, seq.ReverseComplement
	case reversed:
		return a, b, seq.Reverse
	case negative:
		return a, b, seq.Complement
	default:
		return a, b, seq.Normal
	}
}

// ReadFile parses the overlaps side-file grammar WriteFile produces back
// into Placements. Each Placement's Count and SegLen are left at zero:
// the side-file only round-trips the merged ranges, not the bookkeeping
// Merge used to produce them.
func ReadFile(r io.Reader) ([]Placement, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var out []Placement
	for {
		keyRef, ok := scanToken(sc)
		if !ok {
			break
		}
		startRef, err := scanInt(sc)
		if err != nil {
			return nil, errors.Wrap(err, "overlap: ReadFile: start_ref")
		}
		endRef, err := scanInt(sc)
		if err != nil {
			return nil, errors.Wrap(err, "overlap: ReadFile: end_ref")
		}
		keySeg, ok := scanToken(sc)
		if !ok {
			return nil, errors.New("overlap: ReadFile: truncated record, missing key_seg")
		}
		startSeg, err := scanInt(sc)
		if err != nil {
			return nil, errors.Wrap(err, "overlap: ReadFile: start_seg")
		}
		endSeg, err := scanInt(sc)
		if err != nil {
			return nil, errors.Wrap(err, "overlap: ReadFile: end_seg")
		}

		start, end, mode := decodeMode(startSeg, endSeg)
		out = append(out, Placement{
			SegName:  keySeg,
			Mode:     mode,
			RangeRef: seq.Range{Key: keyRef, Start: startRef, End: endRef, Mode: seq.Normal},
			RangeSeg: seq.Range{Key: keySeg, Start: start, End: end, Mode: mode},
		})
	}
	return out, nil
}

func scanToken(sc *bufio.Scanner) (string, bool) {
	if !sc.Scan() {
		return "", false
	}
	return sc.Text(), true
}

func scanInt(sc *bufio.Scanner) (int, error) {
	tok, ok := scanToken(sc)
	if !ok {
		return 0, errors.New("unexpected end of input")
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %q as int", tok)
	}
	return n, nil
}
