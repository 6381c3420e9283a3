package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-huella/logging"
	"github.com/RyanBlaney/sonido-huella/pipeline/features"
	"gonum.org/v1/gonum/floats"
)

// ErrIncomparable is returned when a comparison input carries a fatal
// extraction error.
var ErrIncomparable = errors.New("record carries a fatal extraction error")

// Metric names reported in a ComparisonResult
const (
	MetricTimbre      = "timbre"
	MetricTonal       = "tonal"
	MetricTempo       = "tempo"
	MetricEmbedding   = "embedding"
	MetricFingerprint = "fingerprint"
)

// Fixed metric weights; the overall score renormalizes over the metrics
// actually present.
var metricWeights = map[string]float64{
	MetricTimbre:      0.25,
	MetricTonal:       0.20,
	MetricTempo:       0.15,
	MetricEmbedding:   0.30,
	MetricFingerprint: 0.10,
}

// ComparisonResult maps metric names to similarities in [0, 1], with a
// weighted overall score and a qualitative match label.
type ComparisonResult struct {
	Metrics   map[string]float64 `json:"metrics"`
	Overall   float64            `json:"overall"`
	MatchType string             `json:"match_type"`
}

// SimilarityEngine compares FeatureRecords
type SimilarityEngine struct {
	pipeline *FeaturePipeline
	logger   logging.Logger
}

// NewSimilarityEngine creates a similarity engine. The pipeline is only
// needed for CompareBytes and may be nil when comparing records directly.
func NewSimilarityEngine(p *FeaturePipeline) *SimilarityEngine {
	return &SimilarityEngine{
		pipeline: p,
		logger:   logging.WithFields(logging.Fields{"component": "similarity_engine"}),
	}
}

// Compare scores two records. Metrics whose fields are absent on either
// side are omitted, not scored as zero. Fails only when an input carries a
// fatal extraction error.
func (se *SimilarityEngine) Compare(a, b *features.FeatureRecord) (*ComparisonResult, error) {
	if !a.Usable() || !b.Usable() {
		return nil, ErrIncomparable
	}

	metrics := make(map[string]float64)

	if len(a.MFCCs) > 0 && len(b.MFCCs) > 0 {
		metrics[MetricTimbre] = cosineSimilarity(a.MFCCs, b.MFCCs)
	}
	if len(a.ChromaFeatures) > 0 && len(b.ChromaFeatures) > 0 {
		metrics[MetricTonal] = cosineSimilarity(a.ChromaFeatures, b.ChromaFeatures)
	}
	metrics[MetricTempo] = tempoSimilarity(a.Tempo, b.Tempo)

	if embeddingUsable(a.AudioEmbedding) && embeddingUsable(b.AudioEmbedding) {
		metrics[MetricEmbedding] = cosineSimilarity(a.AudioEmbedding.Vector, b.AudioEmbedding.Vector)
	}

	if score, ok := fingerprintSimilarity(a.AudioFingerprint, b.AudioFingerprint); ok {
		metrics[MetricFingerprint] = score
	}

	overall := 0.0
	weightSum := 0.0
	for name, score := range metrics {
		w := metricWeights[name]
		overall += w * score
		weightSum += w
	}
	if weightSum > 0 {
		overall /= weightSum
	}

	se.logger.Debug("comparison complete", logging.Fields{
		"metrics":    len(metrics),
		"overall":    overall,
		"match_type": matchType(overall),
	})

	return &ComparisonResult{
		Metrics:   metrics,
		Overall:   overall,
		MatchType: matchType(overall),
	}, nil
}

// CompareBytes extracts both inputs through the pipeline, then compares
// the resulting records.
func (se *SimilarityEngine) CompareBytes(ctx context.Context, a, b []byte) (*ComparisonResult, error) {
	if se.pipeline == nil {
		return nil, fmt.Errorf("similarity engine has no pipeline for byte comparison")
	}

	recordA, err := se.pipeline.Process(ctx, a, true)
	if err != nil {
		return nil, fmt.Errorf("failed to process first input: %w", err)
	}
	recordB, err := se.pipeline.Process(ctx, b, true)
	if err != nil {
		return nil, fmt.Errorf("failed to process second input: %w", err)
	}
	return se.Compare(recordA, recordB)
}

func matchType(overall float64) string {
	switch {
	case overall > 0.90:
		return "identical or nearly identical"
	case overall > 0.75:
		return "same content, different rendering"
	case overall > 0.60:
		return "very similar"
	case overall > 0.40:
		return "somewhat similar"
	default:
		return "different"
	}
}

// cosineSimilarity returns 0 when either vector is all-zero and clamps
// the result into [0, 1].
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0.0
	}
	sim := floats.Dot(a, b) / (normA * normB)
	return math.Max(0.0, math.Min(1.0, sim))
}

// tempoSimilarity is the relative tempo agreement, 0 when both tempos are 0
func tempoSimilarity(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0.0
	}
	maxTempo := math.Max(a, b)
	sim := 1.0 - math.Abs(a-b)/maxTempo
	return math.Max(0.0, math.Min(1.0, sim))
}

func embeddingUsable(e *features.Embedding) bool {
	return e != nil && e.Error == "" && len(e.Vector) > 0
}

// fingerprintSimilarity branches on representation: cosine for two dense
// vectors, Jaccard for two peak sets, omitted when the representations
// differ or either side is unusable.
func fingerprintSimilarity(a, b *features.Fingerprint) (float64, bool) {
	if a == nil || b == nil || a.Error != "" || b.Error != "" {
		return 0, false
	}
	if a.Method != b.Method {
		return 0, false
	}

	switch a.Method {
	case features.MethodNeuralNetwork:
		if len(a.Vector) == 0 || len(b.Vector) == 0 {
			return 0, false
		}
		return cosineSimilarity(a.Vector, b.Vector), true
	case features.MethodPeakFinding:
		return jaccardSimilarity(a.Peaks, b.Peaks), true
	default:
		return 0, false
	}
}

// jaccardSimilarity over sets of (frequency bin, time frame) pairs
func jaccardSimilarity(a, b [][2]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	setA := make(map[[2]int]struct{}, len(a))
	for _, p := range a {
		setA[p] = struct{}{}
	}

	setB := make(map[[2]int]struct{}, len(b))
	intersection := 0
	for _, p := range b {
		if _, dup := setB[p]; dup {
			continue
		}
		setB[p] = struct{}{}
		if _, ok := setA[p]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
