// svdetect finds structural variants (INS, DEL, DUP, INV, TRA) between a
// reference genome and a query, either a fully assembled query sequence or
// a set of long, possibly inverted/complemented segments.
//
// Examples:
//
//  1. Build an index over the reference, then merge segments against it
//     and write the resulting index and overlaps to disk:
//
//     svdetect -i -m -ref ref.fa -segments segs.fa -index-out idx.txt -overlaps-out ov.txt
//
//  2. Reuse a previously merged overlaps file to find deltas:
//
//     svdetect -s -ref ref.fa -segments segs.fa -overlaps ov.txt -out deltas.bed
//
//  3. Run all three phases in one invocation:
//
//     svdetect -a -ref ref.fa -segments segs.fa -out deltas.bed
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/biosv/svdetect/delta"
	"github.com/biosv/svdetect/minimizer"
	"github.com/biosv/svdetect/overlap"
	"github.com/biosv/svdetect/seq"
	"github.com/biosv/svdetect/svconfig"
	"github.com/biosv/svdetect/svrun"
)

func usage() {
	fmt.Fprintln(os.Stderr, `
svdetect finds structural variants between a reference and a query.

Flags:
  -i   build the minimizer index over -ref, write it to -index-out
  -m   find and merge segment overlaps against -index (or a freshly built one), write to -overlaps-out
  -s   find deltas; uses -sv if present, else falls back to -segments + -overlaps
  -a   run all three phases in order

See flag.PrintDefaults below for path flags.
`)
	flag.PrintDefaults()
}

type cliFlags struct {
	doIndex, doMerge, doDeltas, doAll bool

	refPath      string
	segmentsPath string
	svPath       string
	indexPath    string
	indexOutPath string
	overlapsPath string
	overlapsOut  string
	outPath      string
}

func main() {
	flag.Usage = usage
	var f cliFlags
	flag.BoolVar(&f.doIndex, "i", false, "build the minimizer index")
	flag.BoolVar(&f.doMerge, "m", false, "find and merge segment overlaps")
	flag.BoolVar(&f.doDeltas, "s", false, "find deltas")
	flag.BoolVar(&f.doAll, "a", false, "run all three phases")

	flag.StringVar(&f.refPath, "ref", "", "path to the reference FASTA")
	flag.StringVar(&f.segmentsPath, "segments", "", "path to the segments FASTA")
	flag.StringVar(&f.svPath, "sv", "", "path to an assembled query FASTA (used by -s instead of segments+overlaps when present)")
	flag.StringVar(&f.indexPath, "index", "", "path to a previously built index side-file (input to -m)")
	flag.StringVar(&f.indexOutPath, "index-out", "index.txt", "path to write the index side-file (-i)")
	flag.StringVar(&f.overlapsPath, "overlaps", "", "path to a previously merged overlaps side-file (input to -s)")
	flag.StringVar(&f.overlapsOut, "overlaps-out", "overlaps.txt", "path to write the merged overlaps side-file (-m)")
	flag.StringVar(&f.outPath, "out", "deltas.bed", "path to write the deltas BED-like output (-s)")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if f.doAll {
		f.doIndex, f.doMerge, f.doDeltas = true, true, true
	}
	if !f.doIndex && !f.doMerge && !f.doDeltas {
		usage()
		os.Exit(1)
	}

	cfg := svconfig.DefaultConfig()
	driver := svrun.NewDriver(cfg)

	if err := run(ctx, driver, cfg, f); err != nil {
		log.Fatal(err)
	}
	log.Printf("svdetect: done")
}

func run(ctx context.Context, driver *svrun.Driver, cfg svconfig.Config, f cliFlags) error {
	ref, err := readFASTA(ctx, f.refPath)
	if err != nil {
		return err
	}

	var idx *minimizer.Index
	if f.doIndex {
		idx = driver.BuildIndex(ref)
		if err := writeFile(ctx, f.indexOutPath, func(w io.Writer) error {
			return minimizer.WriteIndex(w, idx)
		}); err != nil {
			return err
		}
		log.Printf("svdetect: built index, wrote %s", f.indexOutPath)
	}

	var segments *seq.Store
	if f.doMerge || (f.doDeltas && f.svPath == "") {
		segments, err = readFASTA(ctx, f.segmentsPath)
		if err != nil {
			return err
		}
	}

	var merged *svrun.MergedOverlaps
	if f.doMerge {
		if idx == nil {
			idx, err = loadIndex(ctx, f.indexPath, cfg)
			if err != nil {
				return err
			}
		}
		merged, err = driver.MergeOverlaps(idx, ref, segments)
		if err != nil {
			return err
		}
		if err := writeFile(ctx, f.overlapsOut, func(w io.Writer) error {
			return writeOverlaps(w, merged)
		}); err != nil {
			return err
		}
		log.Printf("svdetect: merged overlaps, wrote %s", f.overlapsOut)
	}

	if f.doDeltas {
		var tables *delta.Tables
		if f.svPath != "" {
			query, err := readFASTA(ctx, f.svPath)
			if err != nil {
				return err
			}
			tables = driver.FindDeltasFromQuery(ref, query)
		} else {
			if merged == nil {
				merged, err = loadOverlaps(ctx, f.overlapsPath, ref)
				if err != nil {
					return err
				}
			}
			tables = driver.FindDeltas(ref, segments, merged)
		}
		if err := writeFile(ctx, f.outPath, func(w io.Writer) error {
			return writeDeltas(w, tables)
		}); err != nil {
			return err
		}
		log.Printf("svdetect: found deltas, wrote %s", f.outPath)
	}

	return nil
}

func readFASTA(ctx context.Context, path string) (*seq.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("svdetect: missing required FASTA path flag")
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	r, err := seq.Open(path, in.Reader(ctx))
	if err != nil {
		return nil, err
	}
	return seq.ReadFASTA(r)
}

func loadIndex(ctx context.Context, path string, cfg svconfig.Config) (*minimizer.Index, error) {
	if path == "" {
		return nil, fmt.Errorf("svdetect: -m requires -index when -i was not also given")
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	return minimizer.ReadIndex(in.Reader(ctx), cfg.HashSize, cfg.WindowSize)
}

func loadOverlaps(ctx context.Context, path string, ref *seq.Store) (*svrun.MergedOverlaps, error) {
	if path == "" {
		return nil, fmt.Errorf("svdetect: -s requires -overlaps when -m was not also given")
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	placements, err := overlap.ReadFile(in.Reader(ctx))
	if err != nil {
		return nil, err
	}
	return svrun.NewMergedOverlapsFromPlacements(placements), nil
}

func writeFile(ctx context.Context, path string, write func(w io.Writer) error) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer out.Close(ctx) // nolint: errcheck
	return write(out.Writer(ctx))
}

func writeOverlaps(w io.Writer, merged *svrun.MergedOverlaps) error {
	var all []overlap.Placement
	for _, chrom := range merged.Chromosomes() {
		all = append(all, merged.Placements(chrom)...)
	}
	return overlap.WriteFile(w, all)
}

func writeDeltas(w io.Writer, tables *delta.Tables) error {
	for _, s := range []*delta.Store{tables.Ins, tables.Del, tables.Dup, tables.Inv} {
		if err := delta.WriteStore(w, s); err != nil {
			return err
		}
	}
	for _, pair := range tables.Tra {
		if _, err := fmt.Fprintf(w, "TRA %s %d %d %s %d %d\n",
			pair.ChromA, pair.RangeA.RefStart, pair.RangeA.RefEnd,
			pair.ChromB, pair.RangeB.RefStart, pair.RangeB.RefEnd); err != nil {
			return err
		}
	}
	return nil
}
