package temporal

import (
	"fmt"
	"sort"
)

// TempoConfig holds configuration for tempo estimation
type TempoConfig struct {
	MinBPM        float64 `json:"min_bpm"`
	MaxBPM        float64 `json:"max_bpm"`
	HistogramMin  float64 `json:"histogram_min"`
	HistogramMax  float64 `json:"histogram_max"`
	HistogramBins int     `json:"histogram_bins"`
}

// DefaultTempoConfig returns a standard tempo estimation configuration
func DefaultTempoConfig() *TempoConfig {
	return &TempoConfig{
		MinBPM:        60.0,
		MaxBPM:        180.0,
		HistogramMin:  30.0,
		HistogramMax:  240.0,
		HistogramBins: 40,
	}
}

// TempoEstimator derives tempo from inter-onset intervals
type TempoEstimator struct {
	config *TempoConfig
}

// TempoResult holds tempo analysis output
type TempoResult struct {
	BPM       float64   `json:"bpm"`
	Histogram []float64 `json:"histogram"` // Normalized BPM candidate distribution
}

// NewTempoEstimator creates a tempo estimator. A nil config uses defaults.
func NewTempoEstimator(config *TempoConfig) *TempoEstimator {
	if config == nil {
		config = DefaultTempoConfig()
	}
	return &TempoEstimator{config: config}
}

// Estimate derives tempo from detected onsets. The primary BPM comes from
// the median inter-onset interval folded into the configured range; the
// histogram distributes all candidate BPMs over a fixed grid.
func (te *TempoEstimator) Estimate(onsets *OnsetResult) (*TempoResult, error) {
	if onsets == nil {
		return nil, fmt.Errorf("nil onset result")
	}

	histogram := make([]float64, te.config.HistogramBins)
	if len(onsets.Times) < 2 {
		return &TempoResult{BPM: 0, Histogram: histogram}, nil
	}

	intervals := make([]float64, 0, len(onsets.Times)-1)
	for i := 1; i < len(onsets.Times); i++ {
		interval := onsets.Times[i] - onsets.Times[i-1]
		if interval > 0 {
			intervals = append(intervals, interval)
		}
	}
	if len(intervals) == 0 {
		return &TempoResult{BPM: 0, Histogram: histogram}, nil
	}

	// Histogram over all candidate BPMs
	binWidth := (te.config.HistogramMax - te.config.HistogramMin) / float64(te.config.HistogramBins)
	total := 0.0
	for _, interval := range intervals {
		bpm := 60.0 / interval
		if bpm < te.config.HistogramMin || bpm >= te.config.HistogramMax {
			continue
		}
		bin := int((bpm - te.config.HistogramMin) / binWidth)
		histogram[bin]++
		total++
	}
	if total > 0 {
		for i := range histogram {
			histogram[i] /= total
		}
	}

	sorted := make([]float64, len(intervals))
	copy(sorted, intervals)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	bpm := 60.0 / median
	// Fold octave errors into the usable range
	for bpm < te.config.MinBPM {
		bpm *= 2.0
	}
	for bpm > te.config.MaxBPM {
		bpm /= 2.0
	}

	return &TempoResult{BPM: bpm, Histogram: histogram}, nil
}
