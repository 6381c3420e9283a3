package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-huella/pipeline/features"
	"github.com/RyanBlaney/sonido-huella/pipeline/models"
)

func fullRecord(id string) *features.FeatureRecord {
	return &features.FeatureRecord{
		AudioID:        id,
		Tempo:          120,
		MFCCs:          []float64{1.0, -0.5, 0.25, 0.1},
		ChromaFeatures: []float64{0.9, 0.1, 0, 0, 0.5, 0, 0, 0.7, 0, 0, 0.2, 0},
		AudioEmbedding: &features.Embedding{Vector: []float64{0.5, 0.5, 0.5, 0.5}},
		AudioFingerprint: &features.Fingerprint{
			Method: features.MethodPeakFinding,
			Peaks:  [][2]int{{5, 2}, {12, 7}, {30, 14}},
		},
	}
}

func TestCompareSelfSimilarity(t *testing.T) {
	engine := NewSimilarityEngine(nil)
	r := fullRecord("a")

	result, err := engine.Compare(r, r)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Overall < 0.90 {
		t.Errorf("self comparison overall = %f, want >= 0.90", result.Overall)
	}
	if result.MatchType != "identical or nearly identical" {
		t.Errorf("match type = %q, want identical", result.MatchType)
	}
}

func TestCompareBounds(t *testing.T) {
	engine := NewSimilarityEngine(nil)
	a := fullRecord("a")
	b := fullRecord("b")
	b.Tempo = 90
	b.MFCCs = []float64{-0.3, 0.8, 0.1, -0.9}
	b.ChromaFeatures = []float64{0, 0.6, 0.2, 0, 0, 0.9, 0, 0, 0.1, 0, 0, 0.4}
	b.AudioEmbedding = &features.Embedding{Vector: []float64{0.9, -0.1, 0.2, 0.3}}
	b.AudioFingerprint = &features.Fingerprint{
		Method: features.MethodPeakFinding,
		Peaks:  [][2]int{{5, 2}, {40, 20}},
	}

	result, err := engine.Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	for name, score := range result.Metrics {
		if score < 0 || score > 1 {
			t.Errorf("metric %s = %f, want [0, 1]", name, score)
		}
	}
	if result.Overall < 0 || result.Overall > 1 {
		t.Errorf("overall = %f, want [0, 1]", result.Overall)
	}
}

func TestCompareSilentBuffers(t *testing.T) {
	// Silent audio yields zero timbre and tonal vectors and zero tempo
	a := &features.FeatureRecord{
		AudioID:        "silent-a",
		MFCCs:          make([]float64, 20),
		ChromaFeatures: make([]float64, 12),
	}
	b := &features.FeatureRecord{
		AudioID:        "silent-b",
		MFCCs:          make([]float64, 20),
		ChromaFeatures: make([]float64, 12),
	}

	result, err := NewSimilarityEngine(nil).Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Metrics[MetricTimbre] != 0 {
		t.Errorf("timbre = %f for silent buffers, want 0", result.Metrics[MetricTimbre])
	}
	if result.Metrics[MetricTonal] != 0 {
		t.Errorf("tonal = %f for silent buffers, want 0", result.Metrics[MetricTonal])
	}
	if result.Metrics[MetricTempo] != 0 {
		t.Errorf("tempo = %f for zero tempos, want 0", result.Metrics[MetricTempo])
	}
	// Embedding and fingerprint are absent, so only the three zero
	// metrics contribute
	if result.Overall != 0 {
		t.Errorf("overall = %f, want 0", result.Overall)
	}
}

func TestCompareIncomparable(t *testing.T) {
	engine := NewSimilarityEngine(nil)
	good := fullRecord("a")
	bad := fullRecord("b")
	bad.Error = "decode failed upstream"

	if _, err := engine.Compare(good, bad); !errors.Is(err, ErrIncomparable) {
		t.Errorf("Compare = %v, want ErrIncomparable", err)
	}
	if _, err := engine.Compare(bad, good); !errors.Is(err, ErrIncomparable) {
		t.Errorf("Compare = %v, want ErrIncomparable", err)
	}
}

func TestCompareMismatchedFingerprintsOmitted(t *testing.T) {
	a := fullRecord("a")
	b := fullRecord("b")
	b.AudioFingerprint = &features.Fingerprint{
		Method: features.MethodNeuralNetwork,
		Vector: []float64{0.1, 0.2, 0.3},
	}

	result, err := NewSimilarityEngine(nil).Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if _, present := result.Metrics[MetricFingerprint]; present {
		t.Error("fingerprint metric scored across different representations")
	}
}

func TestCompareRenormalization(t *testing.T) {
	// Records carrying only tempo: the single present metric gets the
	// whole weight.
	a := &features.FeatureRecord{AudioID: "a", Tempo: 120}
	b := &features.FeatureRecord{AudioID: "b", Tempo: 120}

	result, err := NewSimilarityEngine(nil).Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(result.Metrics) != 1 {
		t.Fatalf("got %d metrics, want only tempo", len(result.Metrics))
	}
	if math.Abs(result.Overall-1.0) > 1e-9 {
		t.Errorf("overall = %f, want 1.0 after renormalization", result.Overall)
	}
}

func TestMatchTypeBands(t *testing.T) {
	cases := []struct {
		tempoB float64
		want   string
	}{
		{100, "identical or nearly identical"},    // sim 1.00
		{80, "same content, different rendering"}, // sim 0.80
		{70, "very similar"},                      // sim 0.70
		{50, "somewhat similar"},                  // sim 0.50
		{20, "different"},                         // sim 0.20
	}

	engine := NewSimilarityEngine(nil)
	for _, tc := range cases {
		a := &features.FeatureRecord{AudioID: "a", Tempo: 100}
		b := &features.FeatureRecord{AudioID: "b", Tempo: tc.tempoB}
		result, err := engine.Compare(a, b)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if result.MatchType != tc.want {
			t.Errorf("tempo %v vs 100: match type = %q, want %q", tc.tempoB, result.MatchType, tc.want)
		}
	}
}

func TestCompareBytesPeakFallbackUsesJaccard(t *testing.T) {
	// Without a fingerprint capability both records carry peak sets, so
	// the fingerprint metric must come from Jaccard similarity.
	p := newTestPipeline(t, &fakeDecoder{}, models.NewRegistry())
	engine := NewSimilarityEngine(p)

	result, err := engine.CompareBytes(context.Background(), []byte{80, 1}, []byte{80, 2})
	if err != nil {
		t.Fatalf("CompareBytes failed: %v", err)
	}

	score, present := result.Metrics[MetricFingerprint]
	if !present {
		t.Fatal("fingerprint metric missing from peak set comparison")
	}
	// Identical synthesized tones produce identical peak sets
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("fingerprint similarity = %f for identical content, want 1", score)
	}
}

func TestCompareBytesDecodeError(t *testing.T) {
	p := newTestPipeline(t, &fakeDecoder{}, models.NewRegistry())
	engine := NewSimilarityEngine(p)

	if _, err := engine.CompareBytes(context.Background(), nil, []byte{80}); err == nil {
		t.Error("expected error when the first input cannot be decoded")
	}
}
