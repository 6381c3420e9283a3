package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps the go-dsp real FFT for spectral analysis
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal
func (f *FFT) Compute(signal []float64) []complex128 {
	if len(signal) == 0 {
		return []complex128{}
	}

	// go-dsp handles all sizes, including non-power-of-2
	return fft.FFTReal(signal)
}

// Magnitudes computes the magnitude spectrum for positive frequencies
// (DC through Nyquist) of a real signal.
func (f *FFT) Magnitudes(signal []float64) []float64 {
	spectrum := f.Compute(signal)
	if len(spectrum) == 0 {
		return nil
	}

	freqBins := len(spectrum)/2 + 1
	freqBins = min(len(spectrum), freqBins)

	magnitudes := make([]float64, freqBins)
	for i := range freqBins {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	return magnitudes
}
