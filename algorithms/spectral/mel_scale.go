package spectral

import (
	"fmt"
	"math"
)

// MelScale provides mel-frequency scale conversions and filter banks
type MelScale struct {
	sampleRate int
}

// MelFilterBank represents a bank of triangular mel-spaced filters
type MelFilterBank struct {
	Filters    [][]float64 `json:"filters"`     // NumFilters x FreqBins filter matrix
	NumFilters int         `json:"num_filters"` // Number of mel filters
	FreqBins   int         `json:"freq_bins"`   // Number of frequency bins
	MinFreq    float64     `json:"min_freq"`    // Minimum frequency (Hz)
	MaxFreq    float64     `json:"max_freq"`    // Maximum frequency (Hz)
}

// NewMelScale creates a new mel scale converter
func NewMelScale(sampleRate int) *MelScale {
	return &MelScale{sampleRate: sampleRate}
}

// HzToMel converts frequency in Hz to mel scale
func (m *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale value to frequency in Hz
func (m *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateFilterBank creates a triangular mel filter bank for the given
// FFT size and frequency range.
func (m *MelScale) CreateFilterBank(numFilters, windowSize int, minFreq, maxFreq float64) (*MelFilterBank, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("number of filters must be positive")
	}
	if maxFreq <= minFreq {
		return nil, fmt.Errorf("max frequency must exceed min frequency")
	}
	nyquist := float64(m.sampleRate) / 2.0
	if maxFreq > nyquist {
		maxFreq = nyquist
	}

	freqBins := windowSize/2 + 1

	minMel := m.HzToMel(minFreq)
	maxMel := m.HzToMel(maxFreq)

	// Mel-spaced center frequencies, including edge points
	melPoints := make([]float64, numFilters+2)
	melStep := (maxMel - minMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = minMel + float64(i)*melStep
	}

	// Convert to FFT bin indices
	binPoints := make([]int, len(melPoints))
	for i, mel := range melPoints {
		hz := m.MelToHz(mel)
		binPoints[i] = int(math.Floor(float64(windowSize+1) * hz / float64(m.sampleRate)))
		if binPoints[i] >= freqBins {
			binPoints[i] = freqBins - 1
		}
	}

	filters := make([][]float64, numFilters)
	for f := range numFilters {
		filters[f] = make([]float64, freqBins)

		left := binPoints[f]
		center := binPoints[f+1]
		right := binPoints[f+2]

		for bin := left; bin < center; bin++ {
			if center > left {
				filters[f][bin] = float64(bin-left) / float64(center-left)
			}
		}
		for bin := center; bin <= right && bin < freqBins; bin++ {
			if right > center {
				filters[f][bin] = float64(right-bin) / float64(right-center)
			}
		}
	}

	return &MelFilterBank{
		Filters:    filters,
		NumFilters: numFilters,
		FreqBins:   freqBins,
		MinFreq:    minFreq,
		MaxFreq:    maxFreq,
	}, nil
}

// Apply applies the filter bank to a power spectrum frame, returning
// one energy value per mel filter.
func (fb *MelFilterBank) Apply(powerSpectrum []float64) ([]float64, error) {
	if len(powerSpectrum) != fb.FreqBins {
		return nil, fmt.Errorf("power spectrum length %d does not match filter bank bins %d", len(powerSpectrum), fb.FreqBins)
	}

	energies := make([]float64, fb.NumFilters)
	for f := range fb.NumFilters {
		sum := 0.0
		for bin, weight := range fb.Filters[f] {
			if weight > 0 {
				sum += weight * powerSpectrum[bin]
			}
		}
		energies[f] = sum
	}
	return energies, nil
}
