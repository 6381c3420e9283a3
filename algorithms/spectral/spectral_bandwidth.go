package spectral

import (
	"fmt"
	"math"
)

// SpectralBandwidth computes the magnitude-weighted standard deviation of
// frequency around the spectral centroid.
type SpectralBandwidth struct {
	centroid *SpectralCentroid
}

// NewSpectralBandwidth creates a new spectral bandwidth calculator
func NewSpectralBandwidth() *SpectralBandwidth {
	return &SpectralBandwidth{centroid: NewSpectralCentroid()}
}

// ComputeFrame computes the bandwidth of a single magnitude spectrum in Hz
func (sb *SpectralBandwidth) ComputeFrame(magnitude []float64, freqResolution float64) float64 {
	centroid := sb.centroid.ComputeFrame(magnitude, freqResolution)

	weightedSum := 0.0
	magnitudeSum := 0.0
	for bin, mag := range magnitude {
		freq := float64(bin) * freqResolution
		diff := freq - centroid
		weightedSum += diff * diff * mag
		magnitudeSum += mag
	}
	if magnitudeSum == 0 {
		return 0.0
	}
	return math.Sqrt(weightedSum / magnitudeSum)
}

// ComputeMean computes the average bandwidth over all frames of an STFT
func (sb *SpectralBandwidth) ComputeMean(stft *STFTResult) (float64, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return 0, fmt.Errorf("empty STFT result")
	}
	sum := 0.0
	for _, frame := range stft.Magnitude {
		sum += sb.ComputeFrame(frame, stft.FreqResolution)
	}
	return sum / float64(stft.TimeFrames), nil
}
