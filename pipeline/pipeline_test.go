package pipeline

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-huella/pipeline/cache"
	"github.com/RyanBlaney/sonido-huella/pipeline/features"
	"github.com/RyanBlaney/sonido-huella/pipeline/models"
	"github.com/RyanBlaney/sonido-huella/transcode"
)

// fakeDecoder synthesizes deterministic PCM from the input bytes: a tone
// whose frequency derives from the first byte, or silence when the first
// byte is zero. Empty input is a decode failure.
type fakeDecoder struct {
	calls atomic.Int32
}

func (d *fakeDecoder) DecodeBytes(ctx context.Context, data []byte) (*transcode.AudioData, error) {
	d.calls.Add(1)
	if len(data) == 0 {
		return nil, &transcode.DecodeError{Reason: "empty input"}
	}

	sampleRate := 22050
	numSamples := 2 * sampleRate
	pcm := make([]float64, numSamples)
	if data[0] != 0 {
		freq := 200.0 + float64(data[0])*5.0
		for i := range pcm {
			pcm[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		}
	}
	return &transcode.AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   2 * time.Second,
	}, nil
}

// fakeCapability returns canned results, or fails on demand
type fakeCapability struct {
	stage models.Stage
	fail  bool
}

func (f *fakeCapability) Stage() models.Stage { return f.stage }

func (f *fakeCapability) Run(samples []float64, sampleRate int) (*models.StageResult, error) {
	if f.fail {
		return nil, errors.New("model exploded")
	}
	switch f.stage {
	case models.StageGenre:
		return &models.StageResult{Genre: &features.GenrePrediction{
			TopGenres: []features.GenreScore{{Label: "rock", Confidence: 0.6}},
			AllGenres: map[string]float64{"rock": 0.6, "pop": 0.4},
		}}, nil
	case models.StageEmotion:
		return &models.StageResult{Emotion: &features.EmotionPrediction{
			DominantEmotion: "happy",
			Emotions:        map[string]float64{"happy": 0.7, "sad": 0.3},
		}}, nil
	case models.StageFingerprint:
		return &models.StageResult{Fingerprint: &features.Fingerprint{
			Method: features.MethodNeuralNetwork,
			Vector: []float64{0.1, 0.2, 0.3, 0.4},
		}}, nil
	case models.StageEmbedding:
		return &models.StageResult{Embedding: &features.Embedding{
			Vector: []float64{0.5, 0.5, 0.5, 0.5},
		}}, nil
	}
	return nil, errors.New("unknown stage")
}

func fakeRegistry(stages ...models.Stage) *models.Registry {
	caps := make([]models.Capability, len(stages))
	for i, s := range stages {
		caps[i] = &fakeCapability{stage: s}
	}
	return models.NewRegistry(caps...)
}

func newTestPipeline(t *testing.T, decoder *fakeDecoder, registry *models.Registry) *FeaturePipeline {
	t.Helper()
	store := cache.NewStore(nil, nil)
	t.Cleanup(func() { store.Close() })
	return NewFeaturePipeline(nil, decoder, registry, store)
}

func TestAudioIDDeterminism(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	b := []byte{1, 2, 3, 4}
	c := []byte{1, 2, 3, 5}

	if AudioID(a) != AudioID(b) {
		t.Error("identical bytes produced different audio ids")
	}
	if AudioID(a) == AudioID(c) {
		t.Error("different bytes produced the same audio id")
	}
	if len(AudioID(a)) != 64 {
		t.Errorf("audio id length = %d, want 64 hex characters", len(AudioID(a)))
	}
}

func TestProcessMandatoryFields(t *testing.T) {
	p := newTestPipeline(t, &fakeDecoder{}, fakeRegistry())
	record, err := p.Process(context.Background(), []byte{60}, false)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if record.AudioID != AudioID([]byte{60}) {
		t.Error("record audio id does not match the content hash")
	}
	if record.Duration != 2.0 {
		t.Errorf("duration = %f, want 2.0", record.Duration)
	}
	if record.RMSEnergy <= 0 {
		t.Errorf("RMS energy = %f, want positive for a tone", record.RMSEnergy)
	}
	if record.SpectralCentroid <= 0 {
		t.Errorf("spectral centroid = %f, want positive", record.SpectralCentroid)
	}
	if len(record.MFCCs) != 20 {
		t.Errorf("got %d MFCCs, want 20", len(record.MFCCs))
	}
	if len(record.ChromaFeatures) != 12 {
		t.Errorf("got %d chroma bins, want 12", len(record.ChromaFeatures))
	}

	// Optional blocks stay empty without extractAll
	if record.GenrePrediction != nil || record.AudioFingerprint != nil || record.AdvancedFeatures != nil {
		t.Error("optional blocks populated without extractAll")
	}
	if record.ProcessingTime <= 0 {
		t.Error("processing time not recorded")
	}
}

func TestProcessIdempotentAndCacheServed(t *testing.T) {
	decoder := &fakeDecoder{}
	p := newTestPipeline(t, decoder, fakeRegistry(models.StageGenre, models.StageEmbedding))

	input := []byte{42, 1, 2}
	first, err := p.Process(context.Background(), input, true)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	second, err := p.Process(context.Background(), input, true)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}

	if decoder.calls.Load() != 1 {
		t.Errorf("decoder called %d times, want 1 (second call served from cache)", decoder.calls.Load())
	}

	if first.AudioID != second.AudioID {
		t.Error("audio ids differ between calls")
	}
	if first.RMSEnergy != second.RMSEnergy || first.Tempo != second.Tempo {
		t.Error("scalar fields differ between calls")
	}
	for i := range first.MFCCs {
		if first.MFCCs[i] != second.MFCCs[i] {
			t.Fatalf("MFCC %d differs between calls", i)
		}
	}
	if second.GenrePrediction == nil || second.GenrePrediction.TopGenres[0].Label != "rock" {
		t.Error("cached record lost the genre block")
	}
}

func TestProcessDecodeError(t *testing.T) {
	p := newTestPipeline(t, &fakeDecoder{}, fakeRegistry())

	_, err := p.Process(context.Background(), nil, true)
	if err == nil {
		t.Fatal("expected decode error for empty input")
	}
	var decodeErr *transcode.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("error type = %T, want *transcode.DecodeError", err)
	}
}

func TestProcessFullDegradation(t *testing.T) {
	// No capabilities at all: every registry stage fails over to its
	// error marker, fingerprinting uses the peak fallback.
	p := newTestPipeline(t, &fakeDecoder{}, models.NewRegistry())

	record, err := p.Process(context.Background(), []byte{80}, true)
	if err != nil {
		t.Fatalf("Process failed with empty registry: %v", err)
	}

	if record.RMSEnergy <= 0 || len(record.MFCCs) != 20 {
		t.Error("mandatory fields missing under degradation")
	}
	if record.GenrePrediction == nil || record.GenrePrediction.Error == "" {
		t.Error("genre block should carry an unavailability marker")
	}
	if record.EmotionPrediction == nil || record.EmotionPrediction.Error == "" {
		t.Error("emotion block should carry an unavailability marker")
	}
	if record.AudioEmbedding == nil || record.AudioEmbedding.Error == "" {
		t.Error("embedding block should carry an unavailability marker")
	}
	if record.AudioFingerprint == nil || record.AudioFingerprint.Error != "" {
		t.Fatal("fingerprint fallback should succeed")
	}
	if record.AudioFingerprint.Method != features.MethodPeakFinding {
		t.Errorf("fingerprint method = %q, want %q", record.AudioFingerprint.Method, features.MethodPeakFinding)
	}
	if len(record.AudioFingerprint.Peaks) == 0 {
		t.Error("peak fallback found no peaks in a tone")
	}
	if record.AdvancedFeatures == nil || record.AdvancedFeatures.Error != "" {
		t.Error("advanced statistics should not depend on the registry")
	}
}

func TestProcessNeuralFingerprintPreferred(t *testing.T) {
	p := newTestPipeline(t, &fakeDecoder{}, fakeRegistry(models.StageFingerprint))

	record, err := p.Process(context.Background(), []byte{80}, true)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.AudioFingerprint.Method != features.MethodNeuralNetwork {
		t.Errorf("fingerprint method = %q, want %q", record.AudioFingerprint.Method, features.MethodNeuralNetwork)
	}
	if len(record.AudioFingerprint.Vector) == 0 {
		t.Error("neural fingerprint has no vector")
	}
}

func TestProcessFingerprintRuntimeFallback(t *testing.T) {
	registry := models.NewRegistry(&fakeCapability{stage: models.StageFingerprint, fail: true})
	p := newTestPipeline(t, &fakeDecoder{}, registry)

	record, err := p.Process(context.Background(), []byte{80}, true)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.AudioFingerprint.Method != features.MethodPeakFinding {
		t.Errorf("fingerprint method = %q, want peak fallback after model failure", record.AudioFingerprint.Method)
	}
	if record.AudioFingerprint.Error != "" {
		t.Errorf("fallback fingerprint carries error %q", record.AudioFingerprint.Error)
	}
}

func TestProcessStageFailureIsolated(t *testing.T) {
	registry := models.NewRegistry(
		&fakeCapability{stage: models.StageGenre, fail: true},
		&fakeCapability{stage: models.StageEmotion},
	)
	p := newTestPipeline(t, &fakeDecoder{}, registry)

	record, err := p.Process(context.Background(), []byte{80}, true)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.GenrePrediction == nil || record.GenrePrediction.Error == "" {
		t.Error("failed genre stage should leave an error marker")
	}
	if record.EmotionPrediction == nil || record.EmotionPrediction.Error != "" {
		t.Error("emotion stage should be unaffected by the genre failure")
	}
}

func TestProcessCancelledCallSkipsCacheWrite(t *testing.T) {
	decoder := &fakeDecoder{}
	p := newTestPipeline(t, decoder, fakeRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, []byte{80}, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Process returned %v, want context.Canceled", err)
	}

	// A fresh call must recompute: nothing was cached
	if _, err := p.Process(context.Background(), []byte{80}, true); err != nil {
		t.Fatalf("follow-up Process failed: %v", err)
	}
	if decoder.calls.Load() != 2 {
		t.Errorf("decoder called %d times, want 2 (cancelled call must not cache)", decoder.calls.Load())
	}
}

func TestProcessLocalCacheAfterSharedFailure(t *testing.T) {
	decoder := &fakeDecoder{}
	store := cache.NewStore(nil, &failingSharedTier{})
	t.Cleanup(func() { store.Close() })
	p := NewFeaturePipeline(nil, decoder, fakeRegistry(), store)

	if _, err := p.Process(context.Background(), []byte{80}, true); err != nil {
		t.Fatalf("Process failed with unreachable shared tier: %v", err)
	}
	if _, err := p.Process(context.Background(), []byte{80}, true); err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if decoder.calls.Load() != 1 {
		t.Errorf("decoder called %d times, want 1 (served from local tier)", decoder.calls.Load())
	}
}

type failingSharedTier struct{}

func (f *failingSharedTier) Get(key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (f *failingSharedTier) Put(key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (f *failingSharedTier) Close() error { return nil }
