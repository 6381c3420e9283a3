package harmonic

import (
	"fmt"
	"math"
)

// PitchConfig holds configuration for fundamental frequency estimation
type PitchConfig struct {
	MinFreq       float64 `json:"min_freq"`
	MaxFreq       float64 `json:"max_freq"`
	FrameSize     int     `json:"frame_size"`
	HopSize       int     `json:"hop_size"`
	VoicingThresh float64 `json:"voicing_thresh"` // Minimum normalized autocorrelation
}

// DefaultPitchConfig returns a standard pitch estimation configuration
func DefaultPitchConfig() *PitchConfig {
	return &PitchConfig{
		MinFreq:       65.0,
		MaxFreq:       1000.0,
		FrameSize:     2048,
		HopSize:       512,
		VoicingThresh: 0.3,
	}
}

// PitchEstimator estimates fundamental frequency via frame-wise
// normalized autocorrelation.
type PitchEstimator struct {
	config *PitchConfig
}

// PitchResult holds pitch analysis output
type PitchResult struct {
	MeanPitch    float64 `json:"mean_pitch"`    // Mean F0 over voiced frames (Hz)
	VoicedFrames int     `json:"voiced_frames"` // Frames with detectable pitch
	TotalFrames  int     `json:"total_frames"`
}

// NewPitchEstimator creates a pitch estimator. A nil config uses defaults.
func NewPitchEstimator(config *PitchConfig) *PitchEstimator {
	if config == nil {
		config = DefaultPitchConfig()
	}
	return &PitchEstimator{config: config}
}

// Estimate computes the mean fundamental frequency of a signal. Frames
// whose autocorrelation peak falls below the voicing threshold are treated
// as unvoiced and excluded from the mean.
func (pe *PitchEstimator) Estimate(signal []float64, sampleRate int) (*PitchResult, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	if len(signal) < pe.config.FrameSize {
		return nil, fmt.Errorf("signal shorter than analysis frame")
	}

	minLag := int(float64(sampleRate) / pe.config.MaxFreq)
	maxLag := int(float64(sampleRate) / pe.config.MinFreq)
	if maxLag >= pe.config.FrameSize {
		maxLag = pe.config.FrameSize - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	numFrames := (len(signal)-pe.config.FrameSize)/pe.config.HopSize + 1

	pitchSum := 0.0
	voiced := 0
	for i := range numFrames {
		frame := signal[i*pe.config.HopSize : i*pe.config.HopSize+pe.config.FrameSize]
		f0 := pe.framePitch(frame, sampleRate, minLag, maxLag)
		if f0 > 0 {
			pitchSum += f0
			voiced++
		}
	}

	result := &PitchResult{VoicedFrames: voiced, TotalFrames: numFrames}
	if voiced > 0 {
		result.MeanPitch = pitchSum / float64(voiced)
	}
	return result, nil
}

// framePitch finds the strongest autocorrelation lag in the F0 search range
func (pe *PitchEstimator) framePitch(frame []float64, sampleRate, minLag, maxLag int) float64 {
	energy := 0.0
	for _, s := range frame {
		energy += s * s
	}
	if energy < 1e-10 {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		for i := 0; i < len(frame)-lag; i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestCorr < pe.config.VoicingThresh || bestLag == 0 {
		return 0
	}

	f0 := float64(sampleRate) / float64(bestLag)
	if math.IsInf(f0, 0) || math.IsNaN(f0) {
		return 0
	}
	return f0
}
