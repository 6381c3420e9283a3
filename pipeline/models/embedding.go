package models

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-huella/algorithms/spectral"
	"github.com/RyanBlaney/sonido-huella/pipeline/features"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EmbeddingConfig holds configuration for the mel-band embedding extractor
type EmbeddingConfig struct {
	NumBands int     `json:"num_bands"`
	MinFreq  float64 `json:"min_freq"`
	MaxFreq  float64 `json:"max_freq"`
}

// DefaultEmbeddingConfig returns a standard embedding configuration
func DefaultEmbeddingConfig() *EmbeddingConfig {
	return &EmbeddingConfig{
		NumBands: 32,
		MinFreq:  20.0,
		MaxFreq:  8000.0,
	}
}

// EmbeddingExtractor produces a fixed-dimension embedding from the mean and
// standard deviation of log mel-band energies. The vector has 2*NumBands
// dimensions and is L2-normalized.
type EmbeddingExtractor struct {
	config *EmbeddingConfig
}

// NewEmbeddingExtractor creates an embedding extractor. A nil config uses
// defaults.
func NewEmbeddingExtractor(config *EmbeddingConfig) *EmbeddingExtractor {
	if config == nil {
		config = DefaultEmbeddingConfig()
	}
	return &EmbeddingExtractor{config: config}
}

// Stage identifies the capability
func (ee *EmbeddingExtractor) Stage() Stage {
	return StageEmbedding
}

// Run computes the embedding vector
func (ee *EmbeddingExtractor) Run(samples []float64, sampleRate int) (*StageResult, error) {
	stft, err := computeSTFT(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("embedding analysis failed: %w", err)
	}

	melScale := spectral.NewMelScale(sampleRate)
	maxFreq := math.Min(ee.config.MaxFreq, float64(sampleRate)/2.0)
	fb, err := melScale.CreateFilterBank(ee.config.NumBands, stft.WindowSize, ee.config.MinFreq, maxFreq)
	if err != nil {
		return nil, fmt.Errorf("embedding analysis failed: %w", err)
	}

	// Log mel energies per frame, collected per band
	bandSeries := make([][]float64, ee.config.NumBands)
	for b := range bandSeries {
		bandSeries[b] = make([]float64, stft.TimeFrames)
	}

	power := make([]float64, stft.FreqBins)
	for t := range stft.TimeFrames {
		for bin, mag := range stft.Magnitude[t] {
			power[bin] = mag * mag
		}
		energies, err := fb.Apply(power)
		if err != nil {
			return nil, fmt.Errorf("embedding analysis failed: %w", err)
		}
		for b, e := range energies {
			bandSeries[b][t] = math.Log(e + 1e-10)
		}
	}

	vector := make([]float64, 2*ee.config.NumBands)
	for b, series := range bandSeries {
		mean, std := stat.MeanStdDev(series, nil)
		if math.IsNaN(std) {
			std = 0
		}
		vector[b] = mean
		vector[ee.config.NumBands+b] = std
	}

	if norm := floats.Norm(vector, 2); norm > 0 {
		floats.Scale(1.0/norm, vector)
	}

	return &StageResult{
		Embedding: &features.Embedding{Vector: vector},
	}, nil
}
