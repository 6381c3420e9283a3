package temporal

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// OnsetConfig holds configuration for onset detection
type OnsetConfig struct {
	FrameSize      int     `json:"frame_size"`
	HopSize        int     `json:"hop_size"`
	ThresholdDelta float64 `json:"threshold_delta"` // Std deviations above mean flux
	MinIntervalSec float64 `json:"min_interval_sec"`
}

// DefaultOnsetConfig returns a standard onset detection configuration
func DefaultOnsetConfig() *OnsetConfig {
	return &OnsetConfig{
		FrameSize:      2048,
		HopSize:        512,
		ThresholdDelta: 1.5,
		MinIntervalSec: 0.05,
	}
}

// OnsetDetector finds note onsets from the half-wave rectified energy flux
// of the frame-level RMS envelope.
type OnsetDetector struct {
	config *OnsetConfig
	energy *Energy
}

// OnsetResult holds detected onsets
type OnsetResult struct {
	Times []float64 `json:"times"` // Onset times in seconds
	Count int       `json:"count"` // Number of onsets
	Rate  float64   `json:"rate"`  // Onsets per second
}

// NewOnsetDetector creates an onset detector. A nil config uses defaults.
func NewOnsetDetector(config *OnsetConfig) *OnsetDetector {
	if config == nil {
		config = DefaultOnsetConfig()
	}
	return &OnsetDetector{config: config, energy: NewEnergy()}
}

// Detect finds onsets in a signal
func (od *OnsetDetector) Detect(signal []float64, sampleRate int) (*OnsetResult, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}

	envelope, err := od.Envelope(signal)
	if err != nil {
		return nil, err
	}

	flux := od.flux(envelope)
	if len(flux) == 0 {
		return &OnsetResult{Times: []float64{}}, nil
	}

	mean, std := stat.MeanStdDev(flux, nil)
	threshold := mean + od.config.ThresholdDelta*std

	frameTime := float64(od.config.HopSize) / float64(sampleRate)
	minFrames := int(od.config.MinIntervalSec / frameTime)
	if minFrames < 1 {
		minFrames = 1
	}

	var times []float64
	lastOnset := -minFrames
	for i, f := range flux {
		if f <= threshold {
			continue
		}
		if i-lastOnset < minFrames {
			continue
		}
		// Local maximum of the flux curve
		if i > 0 && flux[i-1] > f {
			continue
		}
		if i < len(flux)-1 && flux[i+1] > f {
			continue
		}
		times = append(times, float64(i)*frameTime)
		lastOnset = i
	}

	duration := float64(len(signal)) / float64(sampleRate)
	rate := 0.0
	if duration > 0 {
		rate = float64(len(times)) / duration
	}

	if times == nil {
		times = []float64{}
	}

	return &OnsetResult{
		Times: times,
		Count: len(times),
		Rate:  rate,
	}, nil
}

// Envelope computes the frame-level RMS envelope used for onset analysis
func (od *OnsetDetector) Envelope(signal []float64) ([]float64, error) {
	return od.energy.ComputeFrameRMS(signal, od.config.FrameSize, od.config.HopSize)
}

// flux computes the half-wave rectified first difference of the envelope
func (od *OnsetDetector) flux(envelope []float64) []float64 {
	if len(envelope) < 2 {
		return nil
	}
	flux := make([]float64, len(envelope)-1)
	for i := 1; i < len(envelope); i++ {
		diff := envelope[i] - envelope[i-1]
		if diff > 0 {
			flux[i-1] = diff
		}
	}
	return flux
}
