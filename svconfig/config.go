// Package svconfig bundles every package's tuning knobs into one record,
// in the style of fusion.Opts/fusion.DefaultOpts: a flat struct populated
// with the constants table's defaults and overridable per field, rather
// than package-level globals.
package svconfig

import (
	"github.com/biosv/svdetect/delta"
	"github.com/biosv/svdetect/fuzzy"
	"github.com/biosv/svdetect/myers"
	"github.com/biosv/svdetect/overlap"
)

// Config aggregates the per-package configuration used by a Driver run.
type Config struct {
	// HashSize is the shared k-mer length (K) the index, finder, and
	// merger must agree on.
	HashSize int
	// WindowSize is the minimizer sliding-window width.
	WindowSize int
	// Concurrency bounds how many chromosomes svrun.Driver processes at
	// once. 1 (the default) runs single-threaded.
	Concurrency int

	Finder overlap.FinderConfig
	Merger overlap.MergerConfig
	Myers  myers.Config
	Delta  delta.Config
	Fuzzy  fuzzy.Kernel
}

// DefaultConfig returns the repository defaults of the constants table.
func DefaultConfig() Config {
	const hashSize = 15
	kernel := fuzzy.Kernel{
		DPPenalty:       2,
		StrictEqualRate: 0.4,
		FuzzyEqualRate:  0.6,
		GapMaxDiff:      30,
	}
	return Config{
		HashSize:    hashSize,
		WindowSize:  10,
		Concurrency: 1,
		Finder: overlap.FinderConfig{
			K:               hashSize,
			OverlapMinCount: 30,
		},
		Merger: overlap.MergerConfig{
			K:                hashSize,
			MinimizerMinCount: 4,
			MinimizerMinLen:   500,
			MinimizerMaxDiff:  1200,
		},
		Myers: myers.Config{
			ChunkSize:     50000,
			SnakeMinLen:   3,
			MyersPenalty:  0.25,
			ErrorMaxScore: 0.0,
		},
		Delta: delta.DefaultConfig(),
		Fuzzy: kernel,
	}
}
