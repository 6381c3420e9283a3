package spectral

import "fmt"

// SpectralCentroid computes the magnitude-weighted mean frequency of a
// spectrum, a correlate of perceived brightness.
type SpectralCentroid struct{}

// NewSpectralCentroid creates a new spectral centroid calculator
func NewSpectralCentroid() *SpectralCentroid {
	return &SpectralCentroid{}
}

// ComputeFrame computes the centroid of a single magnitude spectrum in Hz
func (sc *SpectralCentroid) ComputeFrame(magnitude []float64, freqResolution float64) float64 {
	weightedSum := 0.0
	magnitudeSum := 0.0
	for bin, mag := range magnitude {
		freq := float64(bin) * freqResolution
		weightedSum += freq * mag
		magnitudeSum += mag
	}
	if magnitudeSum == 0 {
		return 0.0
	}
	return weightedSum / magnitudeSum
}

// ComputeMean computes the average centroid over all frames of an STFT
func (sc *SpectralCentroid) ComputeMean(stft *STFTResult) (float64, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return 0, fmt.Errorf("empty STFT result")
	}
	sum := 0.0
	for _, frame := range stft.Magnitude {
		sum += sc.ComputeFrame(frame, stft.FreqResolution)
	}
	return sum / float64(stft.TimeFrames), nil
}
