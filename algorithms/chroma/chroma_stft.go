package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-huella/algorithms/spectral"
)

// NumPitchClasses is the number of chroma bins, one per semitone
const NumPitchClasses = 12

// ChromaConfig holds configuration for chroma extraction
type ChromaConfig struct {
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`
}

// DefaultChromaConfig returns a standard chroma configuration
func DefaultChromaConfig() *ChromaConfig {
	return &ChromaConfig{
		MinFreq: 80.0,
		MaxFreq: 8000.0,
	}
}

// ChromaSTFT computes pitch class profiles from STFT magnitudes by
// folding frequency bins onto the 12 semitone classes.
type ChromaSTFT struct {
	config *ChromaConfig
}

// NewChromaSTFT creates a chroma extractor. A nil config uses defaults.
func NewChromaSTFT(config *ChromaConfig) *ChromaSTFT {
	if config == nil {
		config = DefaultChromaConfig()
	}
	return &ChromaSTFT{config: config}
}

// Compute returns a chromagram, one 12-dimensional vector per frame.
// Each frame is normalized by its maximum so values lie in [0, 1].
func (c *ChromaSTFT) Compute(stft *spectral.STFTResult) ([][]float64, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT result")
	}

	// Precompute pitch class per frequency bin, -1 marks out-of-range
	pitchClass := make([]int, stft.FreqBins)
	for bin := range stft.FreqBins {
		freq := float64(bin) * stft.FreqResolution
		if freq < c.config.MinFreq || freq > c.config.MaxFreq {
			pitchClass[bin] = -1
			continue
		}
		midi := 69.0 + 12.0*math.Log2(freq/440.0)
		pc := int(math.Round(midi)) % NumPitchClasses
		if pc < 0 {
			pc += NumPitchClasses
		}
		pitchClass[bin] = pc
	}

	chromagram := make([][]float64, stft.TimeFrames)
	for t := range stft.TimeFrames {
		frame := make([]float64, NumPitchClasses)
		for bin, pc := range pitchClass {
			if pc < 0 {
				continue
			}
			mag := stft.Magnitude[t][bin]
			frame[pc] += mag * mag
		}

		maxVal := 0.0
		for _, v := range frame {
			if v > maxVal {
				maxVal = v
			}
		}
		if maxVal > 0 {
			for i := range frame {
				frame[i] /= maxVal
			}
		}
		chromagram[t] = frame
	}

	return chromagram, nil
}

// ComputeMean computes the average chroma vector over all frames
func (c *ChromaSTFT) ComputeMean(stft *spectral.STFTResult) ([]float64, error) {
	chromagram, err := c.Compute(stft)
	if err != nil {
		return nil, err
	}

	mean := make([]float64, NumPitchClasses)
	for _, frame := range chromagram {
		for i, v := range frame {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(chromagram))
	}
	return mean, nil
}
