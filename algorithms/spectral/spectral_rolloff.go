package spectral

import "fmt"

// SpectralRolloff computes the frequency below which a given fraction of
// the total spectral energy lies.
type SpectralRolloff struct {
	threshold float64
}

// NewSpectralRolloff creates a rolloff calculator. Threshold is the
// cumulative energy fraction, typically 0.85.
func NewSpectralRolloff(threshold float64) *SpectralRolloff {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &SpectralRolloff{threshold: threshold}
}

// ComputeFrame computes the rolloff frequency of a single magnitude spectrum in Hz
func (sr *SpectralRolloff) ComputeFrame(magnitude []float64, freqResolution float64) float64 {
	totalEnergy := 0.0
	for _, mag := range magnitude {
		totalEnergy += mag * mag
	}
	if totalEnergy == 0 {
		return 0.0
	}

	target := sr.threshold * totalEnergy
	cumulative := 0.0
	for bin, mag := range magnitude {
		cumulative += mag * mag
		if cumulative >= target {
			return float64(bin) * freqResolution
		}
	}
	return float64(len(magnitude)-1) * freqResolution
}

// ComputeMean computes the average rolloff over all frames of an STFT
func (sr *SpectralRolloff) ComputeMean(stft *STFTResult) (float64, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return 0, fmt.Errorf("empty STFT result")
	}
	sum := 0.0
	for _, frame := range stft.Magnitude {
		sum += sr.ComputeFrame(frame, stft.FreqResolution)
	}
	return sum / float64(stft.TimeFrames), nil
}
