package svconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigMatchesConstantsTable(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 15, cfg.HashSize)
	assert.Equal(t, 10, cfg.WindowSize)
	assert.Equal(t, 1, cfg.Concurrency)

	assert.Equal(t, cfg.HashSize, cfg.Finder.K)
	assert.Equal(t, 30, cfg.Finder.OverlapMinCount)

	assert.Equal(t, cfg.HashSize, cfg.Merger.K)
	assert.Equal(t, 4, cfg.Merger.MinimizerMinCount)
	assert.Equal(t, 500, cfg.Merger.MinimizerMinLen)
	assert.Equal(t, 1200, cfg.Merger.MinimizerMaxDiff)

	assert.Equal(t, 50000, cfg.Myers.ChunkSize)
	assert.Equal(t, 3, cfg.Myers.SnakeMinLen)
	assert.Equal(t, 0.25, cfg.Myers.MyersPenalty)
	assert.Equal(t, 0.0, cfg.Myers.ErrorMaxScore)

	assert.Equal(t, 100, cfg.Delta.DeltaMinLen)
	assert.Equal(t, 1000, cfg.Delta.DeltaMaxLen)
	assert.Equal(t, 1, cfg.Delta.DeltaIgnoreLen)
	assert.Equal(t, 40, cfg.Delta.DensityWindowSize)
	assert.Equal(t, 0.10, cfg.Delta.NoiseRate)
	assert.Equal(t, 0.55, cfg.Delta.SignalRate)
	assert.Equal(t, 1, cfg.Delta.GapMinDiff)
	assert.Equal(t, 30, cfg.Delta.GapMaxDiff)
	assert.Equal(t, 0.10, cfg.Delta.UnknownRate)

	assert.Equal(t, 2, cfg.Fuzzy.DPPenalty)
	assert.Equal(t, 0.4, cfg.Fuzzy.StrictEqualRate)
	assert.Equal(t, 0.6, cfg.Fuzzy.FuzzyEqualRate)
	assert.Equal(t, 30, cfg.Fuzzy.GapMaxDiff)
}
