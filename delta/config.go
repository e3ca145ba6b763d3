package delta

// Config holds the thresholds DeltaStore's Set/Combine/Filter/GetDensity
// are judged against (spec §4.7, constants table §6).
type Config struct {
	// GapMinDiff is the strict-mode reference-overlap slack Combine uses.
	GapMinDiff int
	// GapMaxDiff is the loose-mode reference-overlap slack Combine uses.
	GapMaxDiff int
	// DeltaIgnoreLen: Set silently drops entries whose reference span is
	// this short or shorter.
	DeltaIgnoreLen int
	// DeltaAllowLen bounds how long a Combine'd reference span may grow.
	DeltaAllowLen int
	// DeltaMinLen / DeltaMaxLen bound what Filter keeps.
	DeltaMinLen int
	DeltaMaxLen int
	// DensityWindowSize is GetDensity's sliding-mean window width.
	DensityWindowSize int
	// SignalRate / NoiseRate set GetDensity's rising/falling hysteresis
	// thresholds for a density band (rises at SignalRate, falls at
	// SignalRate-NoiseRate).
	SignalRate float64
	NoiseRate  float64
	// UnknownRate is the fraction of synthesized N bases at or above which
	// a combined entry is marked Unknown.
	UnknownRate float64
}

// DefaultConfig returns the constants table's §6 defaults. DeltaAllowLen
// has no separate named constant in that table; a combined entry is
// bounded by the same ceiling Filter later enforces (DeltaMaxLen), so
// growth beyond it would only be discarded downstream anyway.
func DefaultConfig() Config {
	return Config{
		GapMinDiff:        1,
		GapMaxDiff:        30,
		DeltaIgnoreLen:    1,
		DeltaAllowLen:     1000,
		DeltaMinLen:       100,
		DeltaMaxLen:       1000,
		DensityWindowSize: 40,
		SignalRate:        0.55,
		NoiseRate:         0.10,
		UnknownRate:       0.10,
	}
}
