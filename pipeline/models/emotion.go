package models

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-huella/pipeline/features"
)

// emotionProfile places one emotion label in the valence-arousal plane
type emotionProfile struct {
	label   string
	valence float64
	arousal float64
}

// emotionProfiles covers the six-label taxonomy in a fixed order so the
// output is deterministic.
var emotionProfiles = []emotionProfile{
	{"angry", 0.20, 0.90},
	{"happy", 0.85, 0.75},
	{"relaxed", 0.70, 0.25},
	{"sad", 0.20, 0.20},
	{"fearful", 0.30, 0.60},
	{"surprised", 0.60, 0.85},
}

// EmotionDetectorConfig holds configuration for the emotion detector
type EmotionDetectorConfig struct {
	Spread float64 `json:"spread"` // Gaussian width in the valence-arousal plane
}

// DefaultEmotionDetectorConfig returns a standard configuration
func DefaultEmotionDetectorConfig() *EmotionDetectorConfig {
	return &EmotionDetectorConfig{Spread: 0.15}
}

// EmotionDetector predicts the emotional character of a signal by mapping
// energy, tempo and brightness into the valence-arousal plane and scoring
// against fixed label positions.
type EmotionDetector struct {
	config *EmotionDetectorConfig
}

// NewEmotionDetector creates an emotion detector. A nil config uses defaults.
func NewEmotionDetector(config *EmotionDetectorConfig) *EmotionDetector {
	if config == nil {
		config = DefaultEmotionDetectorConfig()
	}
	return &EmotionDetector{config: config}
}

// Stage identifies the capability
func (ed *EmotionDetector) Stage() Stage {
	return StageEmotion
}

// Run estimates the emotion distribution and dominant label
func (ed *EmotionDetector) Run(samples []float64, sampleRate int) (*StageResult, error) {
	stft, err := computeSTFT(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("emotion analysis failed: %w", err)
	}
	summary, err := summarizeSignal(samples, sampleRate, stft)
	if err != nil {
		return nil, fmt.Errorf("emotion analysis failed: %w", err)
	}

	// Arousal tracks energy and tempo, valence tracks brightness
	arousal := math.Min((math.Min(summary.rms*3.0, 1.0)+math.Min(summary.tempo/180.0, 1.0))/2.0, 1.0)
	valence := summary.brightness

	emotions := make(map[string]float64, len(emotionProfiles))
	total := 0.0
	scores := make([]float64, len(emotionProfiles))
	for i, p := range emotionProfiles {
		dv := valence - p.valence
		da := arousal - p.arousal
		scores[i] = math.Exp(-(dv*dv + da*da) / ed.config.Spread)
		total += scores[i]
	}

	dominant := emotionProfiles[0].label
	best := -1.0
	for i, p := range emotionProfiles {
		confidence := 0.0
		if total > 0 {
			confidence = scores[i] / total
		}
		emotions[p.label] = confidence
		if confidence > best {
			best = confidence
			dominant = p.label
		}
	}

	return &StageResult{
		Emotion: &features.EmotionPrediction{
			DominantEmotion: dominant,
			Emotions:        emotions,
		},
	}, nil
}
