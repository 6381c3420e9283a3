package spectral

import (
	"fmt"
	"math"
	"sort"
)

// HPSSConfig holds configuration for harmonic-percussive source separation
type HPSSConfig struct {
	HarmonicKernel   int     `json:"harmonic_kernel"`   // Median filter length along time
	PercussiveKernel int     `json:"percussive_kernel"` // Median filter length along frequency
	MaskPower        float64 `json:"mask_power"`        // Soft mask exponent
}

// DefaultHPSSConfig returns a standard HPSS configuration
func DefaultHPSSConfig() *HPSSConfig {
	return &HPSSConfig{
		HarmonicKernel:   17,
		PercussiveKernel: 17,
		MaskPower:        2.0,
	}
}

// HPSS separates a spectrogram into harmonic and percussive components
// using median filtering. Harmonic content forms horizontal ridges in
// the time-frequency plane, percussive content forms vertical ones.
type HPSS struct {
	config *HPSSConfig
}

// HPSSResult holds separated component energy estimates
type HPSSResult struct {
	HarmonicRMS   float64 `json:"harmonic_rms"`
	PercussiveRMS float64 `json:"percussive_rms"`
}

// NewHPSS creates an HPSS analyzer. A nil config uses defaults.
func NewHPSS(config *HPSSConfig) *HPSS {
	if config == nil {
		config = DefaultHPSSConfig()
	}
	return &HPSS{config: config}
}

// Separate computes harmonic and percussive RMS energy from an STFT
func (h *HPSS) Separate(stft *STFTResult) (*HPSSResult, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT result")
	}

	numFrames := stft.TimeFrames
	numBins := stft.FreqBins

	// Median filter along time for each frequency bin
	harmonic := make([][]float64, numFrames)
	for t := range numFrames {
		harmonic[t] = make([]float64, numBins)
	}
	column := make([]float64, numFrames)
	for bin := range numBins {
		for t := range numFrames {
			column[t] = stft.Magnitude[t][bin]
		}
		filtered := medianFilter(column, h.config.HarmonicKernel)
		for t := range numFrames {
			harmonic[t][bin] = filtered[t]
		}
	}

	// Median filter along frequency for each frame
	percussive := make([][]float64, numFrames)
	for t := range numFrames {
		percussive[t] = medianFilter(stft.Magnitude[t], h.config.PercussiveKernel)
	}

	// Soft masks and masked energy
	p := h.config.MaskPower
	harmonicEnergy := 0.0
	percussiveEnergy := 0.0
	total := 0

	for t := range numFrames {
		for bin := range numBins {
			hPow := math.Pow(harmonic[t][bin], p)
			pPow := math.Pow(percussive[t][bin], p)
			denom := hPow + pPow
			if denom < 1e-10 {
				continue
			}
			mag := stft.Magnitude[t][bin]
			hMasked := mag * hPow / denom
			pMasked := mag * pPow / denom
			harmonicEnergy += hMasked * hMasked
			percussiveEnergy += pMasked * pMasked
			total++
		}
	}

	if total == 0 {
		return &HPSSResult{}, nil
	}

	return &HPSSResult{
		HarmonicRMS:   math.Sqrt(harmonicEnergy / float64(total)),
		PercussiveRMS: math.Sqrt(percussiveEnergy / float64(total)),
	}, nil
}

// medianFilter applies a running median with edge clamping
func medianFilter(signal []float64, kernel int) []float64 {
	if kernel < 3 || len(signal) == 0 {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	half := kernel / 2
	out := make([]float64, len(signal))
	window := make([]float64, 0, kernel)

	for i := range signal {
		window = window[:0]
		for j := i - half; j <= i+half; j++ {
			idx := j
			if idx < 0 {
				idx = 0
			} else if idx >= len(signal) {
				idx = len(signal) - 1
			}
			window = append(window, signal[idx])
		}
		sort.Float64s(window)
		out[i] = window[len(window)/2]
	}
	return out
}
