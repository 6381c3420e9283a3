// Package pipeline orchestrates audio feature extraction and comparison.
// A FeaturePipeline turns raw audio bytes into a cached FeatureRecord; a
// SimilarityEngine scores two records against each other.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-huella/algorithms/chroma"
	"github.com/RyanBlaney/sonido-huella/algorithms/spectral"
	"github.com/RyanBlaney/sonido-huella/algorithms/temporal"
	"github.com/RyanBlaney/sonido-huella/algorithms/windowing"
	"github.com/RyanBlaney/sonido-huella/logging"
	"github.com/RyanBlaney/sonido-huella/pipeline/cache"
	"github.com/RyanBlaney/sonido-huella/pipeline/config"
	"github.com/RyanBlaney/sonido-huella/pipeline/features"
	"github.com/RyanBlaney/sonido-huella/pipeline/models"
	"github.com/RyanBlaney/sonido-huella/transcode"
	"github.com/goccy/go-json"
)

// AudioDecoder turns raw container bytes into a PCM sample buffer
type AudioDecoder interface {
	DecodeBytes(ctx context.Context, data []byte) (*transcode.AudioData, error)
}

// FeaturePipeline runs the full extraction for one audio input: cache
// check, decode, mandatory statistics, concurrent optional stages, merge,
// cache write.
type FeaturePipeline struct {
	config   *config.Config
	decoder  AudioDecoder
	registry *models.Registry
	cache    *cache.Store
	logger   logging.Logger
	workers  int
}

// NewFeaturePipeline creates a pipeline. Nil collaborators get defaults:
// an ffmpeg decoder targeting the configured sample rate, the built-in
// capability registry, and a local-only cache store.
func NewFeaturePipeline(cfg *config.Config, decoder AudioDecoder, registry *models.Registry, store *cache.Store) *FeaturePipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if decoder == nil {
		decoderCfg := transcode.DefaultDecoderConfig()
		decoderCfg.TargetSampleRate = cfg.Audio.SampleRate
		decoder = transcode.NewDecoder(decoderCfg)
	}
	if registry == nil {
		registry = models.NewDefaultRegistry()
	}
	if store == nil {
		store = cache.NewStore(&cache.StoreConfig{
			TTL:           cfg.Cache.TTL,
			SweepInterval: cfg.Cache.SweepInterval,
		}, nil)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &FeaturePipeline{
		config:   cfg,
		decoder:  decoder,
		registry: registry,
		cache:    store,
		logger:   logging.WithFields(logging.Fields{"component": "feature_pipeline"}),
		workers:  workers,
	}
}

// AudioID returns the content hash identifying the given bytes
func AudioID(audioBytes []byte) string {
	sum := sha256.Sum256(audioBytes)
	return hex.EncodeToString(sum[:])
}

// Process extracts a FeatureRecord from raw audio bytes. With extractAll
// the optional stages run concurrently; their failures become error
// markers on the record, never call failures. Decode failure is the only
// fatal condition. A cancelled context skips the cache write.
func (p *FeaturePipeline) Process(ctx context.Context, audioBytes []byte, extractAll bool) (*features.FeatureRecord, error) {
	start := time.Now()

	audioID := AudioID(audioBytes)
	logger := p.logger.WithFields(logging.Fields{
		"function": "Process",
		"audio_id": audioID,
	})

	key := cache.Key(audioID)
	if data, found := p.cache.Get(key); found {
		record := &features.FeatureRecord{}
		if err := json.Unmarshal(data, record); err == nil {
			logger.Debug("cache hit")
			return record, nil
		}
		logger.Warn("discarding undecodable cache entry")
	}

	audio, err := p.decoder.DecodeBytes(ctx, audioBytes)
	if err != nil {
		logger.Error(err, "decode failed")
		return nil, err
	}

	record, stft, err := p.extractMandatory(audioID, audio)
	if err != nil {
		return nil, &transcode.DecodeError{Reason: "decoded audio unusable for analysis", Err: err}
	}

	if extractAll {
		p.runOptionalStages(ctx, record, audio, stft)
	}

	record.ProcessingTime = time.Since(start).Seconds()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if data, err := json.Marshal(record); err == nil {
		p.cache.Put(key, data)
	} else {
		logger.WithFields(logging.Fields{"error": err.Error()}).Warn("cache write skipped")
	}

	logger.WithFields(logging.Fields{
		"duration_s":    record.Duration,
		"processing_ms": time.Since(start).Milliseconds(),
	}).Debug("extraction complete")

	return record, nil
}

// extractMandatory computes the basic statistics every record carries.
// The STFT is returned for reuse by the optional stages.
func (p *FeaturePipeline) extractMandatory(audioID string, audio *transcode.AudioData) (*features.FeatureRecord, *spectral.STFTResult, error) {
	record := &features.FeatureRecord{
		AudioID:    audioID,
		Duration:   audio.Duration.Seconds(),
		SampleRate: audio.SampleRate,
	}

	energy := temporal.NewEnergy()
	rms, err := energy.ComputeRMS(audio.PCM)
	if err != nil {
		return nil, nil, fmt.Errorf("energy analysis failed: %w", err)
	}
	record.RMSEnergy = rms

	zcr, err := energy.ZeroCrossingRate(audio.PCM)
	if err != nil {
		return nil, nil, fmt.Errorf("zero crossing analysis failed: %w", err)
	}
	record.ZeroCrossingRate = zcr

	window, err := windowing.NewHann(p.config.Audio.WindowSize, true)
	if err != nil {
		return nil, nil, err
	}
	stft, err := spectral.NewSTFT().Compute(audio.PCM, p.config.Audio.WindowSize, p.config.Audio.HopSize, audio.SampleRate, window)
	if err != nil {
		return nil, nil, fmt.Errorf("spectral analysis failed: %w", err)
	}

	if record.SpectralCentroid, err = spectral.NewSpectralCentroid().ComputeMean(stft); err != nil {
		return nil, nil, err
	}
	if record.SpectralBandwidth, err = spectral.NewSpectralBandwidth().ComputeMean(stft); err != nil {
		return nil, nil, err
	}
	if record.SpectralRolloff, err = spectral.NewSpectralRolloff(0.85).ComputeMean(stft); err != nil {
		return nil, nil, err
	}

	onsets, err := temporal.NewOnsetDetector(&temporal.OnsetConfig{
		FrameSize:      p.config.Audio.WindowSize,
		HopSize:        p.config.Audio.HopSize,
		ThresholdDelta: 1.5,
		MinIntervalSec: 0.05,
	}).Detect(audio.PCM, audio.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("onset analysis failed: %w", err)
	}
	tempoResult, err := temporal.NewTempoEstimator(nil).Estimate(onsets)
	if err != nil {
		return nil, nil, err
	}
	record.Tempo = tempoResult.BPM

	mfcc := spectral.NewMFCC(&spectral.MFCCConfig{
		NumCoefficients: p.config.Audio.MFCCCoefficients,
		NumFilters:      p.config.Audio.MelBands,
		MinFreq:         0,
		MaxFreq:         float64(audio.SampleRate) / 2.0,
		LifterCoeff:     22.0,
	})
	if record.MFCCs, err = mfcc.ComputeMean(stft); err != nil {
		return nil, nil, fmt.Errorf("timbre analysis failed: %w", err)
	}

	if record.ChromaFeatures, err = chroma.NewChromaSTFT(nil).ComputeMean(stft); err != nil {
		return nil, nil, fmt.Errorf("chroma analysis failed: %w", err)
	}

	return record, stft, nil
}

// runOptionalStages fans out the enabled optional stages under a bounded
// semaphore and merges their outcomes into the record. Each unit returns a
// value, never panics across the barrier; a failed stage becomes an error
// marker on its own block only.
func (p *FeaturePipeline) runOptionalStages(ctx context.Context, record *features.FeatureRecord, audio *transcode.AudioData, stft *spectral.STFTResult) {
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	run := func(unit func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			unit()
		}()
	}

	run(func() { record.AdvancedFeatures = p.advancedStage(audio, stft) })

	if p.config.Stages.Genre {
		run(func() { record.GenrePrediction = p.genreStage(audio) })
	}
	if p.config.Stages.Emotion {
		run(func() { record.EmotionPrediction = p.emotionStage(audio) })
	}
	if p.config.Stages.Fingerprint {
		run(func() { record.AudioFingerprint = p.fingerprintStage(audio, stft) })
	}
	if p.config.Stages.Embedding {
		run(func() { record.AudioEmbedding = p.embeddingStage(audio) })
	}

	wg.Wait()
}
