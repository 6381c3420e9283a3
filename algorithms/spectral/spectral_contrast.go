package spectral

import (
	"fmt"
	"math"
	"sort"
)

// SpectralContrastConfig holds configuration for spectral contrast analysis
type SpectralContrastConfig struct {
	NumBands int     `json:"num_bands"`
	MinFreq  float64 `json:"min_freq"`
	Quantile float64 `json:"quantile"`
}

// DefaultSpectralContrastConfig returns a standard configuration
func DefaultSpectralContrastConfig() *SpectralContrastConfig {
	return &SpectralContrastConfig{
		NumBands: 6,
		MinFreq:  200.0,
		Quantile: 0.02,
	}
}

// SpectralContrast measures the level difference between spectral peaks
// and valleys in octave-spaced bands.
type SpectralContrast struct {
	config *SpectralContrastConfig
}

// NewSpectralContrast creates a spectral contrast analyzer. A nil config
// uses defaults.
func NewSpectralContrast(config *SpectralContrastConfig) *SpectralContrast {
	if config == nil {
		config = DefaultSpectralContrastConfig()
	}
	return &SpectralContrast{config: config}
}

// ComputeMean computes the mean contrast per band over all frames.
// The result has NumBands+1 values, one per sub-band plus the residual
// band up to Nyquist.
func (sc *SpectralContrast) ComputeMean(stft *STFTResult) ([]float64, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT result")
	}

	edges := sc.bandEdges(stft)
	numBands := len(edges) - 1

	contrast := make([]float64, numBands)
	for _, frame := range stft.Magnitude {
		for b := range numBands {
			lo, hi := edges[b], edges[b+1]
			if hi <= lo {
				continue
			}
			contrast[b] += sc.bandContrast(frame[lo:hi])
		}
	}
	for b := range contrast {
		contrast[b] /= float64(stft.TimeFrames)
	}
	return contrast, nil
}

// bandEdges computes octave-spaced band boundaries as bin indices
func (sc *SpectralContrast) bandEdges(stft *STFTResult) []int {
	edges := make([]int, 0, sc.config.NumBands+2)
	edges = append(edges, 0)

	freq := sc.config.MinFreq
	for range sc.config.NumBands {
		bin := int(freq / stft.FreqResolution)
		if bin >= stft.FreqBins {
			bin = stft.FreqBins - 1
		}
		edges = append(edges, bin)
		freq *= 2.0
	}
	edges = append(edges, stft.FreqBins)
	return edges
}

// bandContrast computes log peak-to-valley ratio within one band using
// quantile-averaged extremes.
func (sc *SpectralContrast) bandContrast(band []float64) float64 {
	if len(band) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(band))
	copy(sorted, band)
	sort.Float64s(sorted)

	n := max(int(sc.config.Quantile*float64(len(sorted))), 1)

	valley := 0.0
	peak := 0.0
	for i := range n {
		valley += sorted[i]
		peak += sorted[len(sorted)-1-i]
	}
	valley /= float64(n)
	peak /= float64(n)

	return math.Log(peak+1e-10) - math.Log(valley+1e-10)
}
