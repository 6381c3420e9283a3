package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-huella/pipeline/features"
)

// GenreClassifierConfig holds configuration for the heuristic genre classifier
type GenreClassifierConfig struct {
	TopN int `json:"top_n"`
}

// DefaultGenreClassifierConfig returns a standard configuration
func DefaultGenreClassifierConfig() *GenreClassifierConfig {
	return &GenreClassifierConfig{TopN: 3}
}

// genreProfile is the prototype signal description for one genre:
// tempo (BPM), brightness, energy and zero-crossing rate.
type genreProfile struct {
	label      string
	tempo      float64
	brightness float64
	energy     float64
	zcr        float64
}

// genreProfiles covers the standard ten-genre taxonomy
var genreProfiles = []genreProfile{
	{"blues", 90, 0.35, 0.40, 0.06},
	{"classical", 100, 0.25, 0.25, 0.04},
	{"country", 110, 0.40, 0.45, 0.07},
	{"disco", 120, 0.50, 0.55, 0.08},
	{"hiphop", 95, 0.45, 0.60, 0.07},
	{"jazz", 115, 0.30, 0.35, 0.05},
	{"metal", 140, 0.60, 0.70, 0.12},
	{"pop", 118, 0.50, 0.50, 0.08},
	{"reggae", 80, 0.40, 0.50, 0.06},
	{"rock", 125, 0.55, 0.60, 0.10},
}

// GenreClassifier predicts genre from coarse signal statistics by scoring
// the input against fixed per-genre prototypes.
type GenreClassifier struct {
	config *GenreClassifierConfig
}

// NewGenreClassifier creates a genre classifier. A nil config uses defaults.
func NewGenreClassifier(config *GenreClassifierConfig) *GenreClassifier {
	if config == nil {
		config = DefaultGenreClassifierConfig()
	}
	return &GenreClassifier{config: config}
}

// Stage identifies the capability
func (gc *GenreClassifier) Stage() Stage {
	return StageGenre
}

// Run scores the signal against each genre prototype and returns the
// ranked candidates plus the full normalized distribution.
func (gc *GenreClassifier) Run(samples []float64, sampleRate int) (*StageResult, error) {
	stft, err := computeSTFT(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("genre analysis failed: %w", err)
	}
	summary, err := summarizeSignal(samples, sampleRate, stft)
	if err != nil {
		return nil, fmt.Errorf("genre analysis failed: %w", err)
	}

	affinities := make([]float64, len(genreProfiles))
	total := 0.0
	for i, p := range genreProfiles {
		dTempo := (summary.tempo - p.tempo) / 180.0
		dBright := summary.brightness - p.brightness
		dEnergy := math.Min(summary.rms*2.0, 1.0) - p.energy
		dZCR := (summary.zcr - p.zcr) * 4.0

		dist := dTempo*dTempo + dBright*dBright + dEnergy*dEnergy + dZCR*dZCR
		affinities[i] = math.Exp(-dist / 0.1)
		total += affinities[i]
	}

	allGenres := make(map[string]float64, len(genreProfiles))
	ranked := make([]features.GenreScore, len(genreProfiles))
	for i, p := range genreProfiles {
		confidence := 0.0
		if total > 0 {
			confidence = affinities[i] / total
		}
		allGenres[p.label] = confidence
		ranked[i] = features.GenreScore{Label: p.label, Confidence: confidence}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Label < ranked[j].Label
	})

	topN := min(gc.config.TopN, len(ranked))

	return &StageResult{
		Genre: &features.GenrePrediction{
			TopGenres: ranked[:topN],
			AllGenres: allGenres,
		},
	}, nil
}
