package models

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-huella/algorithms/spectral"
	"github.com/RyanBlaney/sonido-huella/algorithms/temporal"
	"github.com/RyanBlaney/sonido-huella/algorithms/windowing"
)

// analysisParams are the STFT settings shared by the built-in capabilities
const (
	analysisWindowSize = 2048
	analysisHopSize    = 512
)

func computeSTFT(samples []float64, sampleRate int) (*spectral.STFTResult, error) {
	if len(samples) < analysisWindowSize {
		return nil, fmt.Errorf("signal too short for analysis: %d samples", len(samples))
	}
	window, err := windowing.NewHann(analysisWindowSize, true)
	if err != nil {
		return nil, fmt.Errorf("window setup failed: %w", err)
	}
	stft := spectral.NewSTFT()
	return stft.Compute(samples, analysisWindowSize, analysisHopSize, sampleRate, window)
}

// signalSummary is the coarse signal description the heuristic
// capabilities score against.
type signalSummary struct {
	rms        float64
	zcr        float64
	brightness float64 // Spectral centroid scaled into [0, 1]
	tempo      float64 // BPM, 0 when no onsets were found
}

func summarizeSignal(samples []float64, sampleRate int, stft *spectral.STFTResult) (*signalSummary, error) {
	energy := temporal.NewEnergy()

	rms, err := energy.ComputeRMS(samples)
	if err != nil {
		return nil, err
	}
	zcr, err := energy.ZeroCrossingRate(samples)
	if err != nil {
		return nil, err
	}

	centroid, err := spectral.NewSpectralCentroid().ComputeMean(stft)
	if err != nil {
		return nil, err
	}

	onsets, err := temporal.NewOnsetDetector(nil).Detect(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	tempoResult, err := temporal.NewTempoEstimator(nil).Estimate(onsets)
	if err != nil {
		return nil, err
	}

	return &signalSummary{
		rms:        rms,
		zcr:        zcr,
		brightness: math.Min(centroid/4000.0, 1.0),
		tempo:      tempoResult.BPM,
	}, nil
}
