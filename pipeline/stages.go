package pipeline

import (
	"errors"

	"github.com/RyanBlaney/sonido-huella/algorithms/chroma"
	"github.com/RyanBlaney/sonido-huella/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-huella/algorithms/spectral"
	"github.com/RyanBlaney/sonido-huella/algorithms/temporal"
	"github.com/RyanBlaney/sonido-huella/logging"
	"github.com/RyanBlaney/sonido-huella/pipeline/features"
	"github.com/RyanBlaney/sonido-huella/pipeline/models"
	"github.com/RyanBlaney/sonido-huella/transcode"
)

// advancedStage computes the extended statistics block. It is an internal
// unit, not a registry capability, and always produces a block; numerical
// failure is recorded in the block's error marker.
func (p *FeaturePipeline) advancedStage(audio *transcode.AudioData, stft *spectral.STFTResult) *features.AdvancedFeatures {
	block := &features.AdvancedFeatures{}

	hpss, err := spectral.NewHPSS(nil).Separate(stft)
	if err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
		return block
	}
	block.HarmonicRMS = hpss.HarmonicRMS
	block.PercussiveRMS = hpss.PercussiveRMS

	onsets, err := temporal.NewOnsetDetector(&temporal.OnsetConfig{
		FrameSize:      p.config.Audio.WindowSize,
		HopSize:        p.config.Audio.HopSize,
		ThresholdDelta: 1.5,
		MinIntervalSec: 0.05,
	}).Detect(audio.PCM, audio.SampleRate)
	if err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
		return block
	}
	block.OnsetCount = onsets.Count
	block.OnsetRate = onsets.Rate

	tempoResult, err := temporal.NewTempoEstimator(nil).Estimate(onsets)
	if err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
		return block
	}
	block.TempoHistogram = tempoResult.Histogram

	pitch, err := harmonic.NewPitchEstimator(nil).Estimate(audio.PCM, audio.SampleRate)
	if err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
		return block
	}
	block.PitchMean = pitch.MeanPitch

	if block.SpectralContrast, err = spectral.NewSpectralContrast(nil).ComputeMean(stft); err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
		return block
	}

	chromagram, err := chroma.NewChromaSTFT(nil).Compute(stft)
	if err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
		return block
	}
	if block.Tonnetz, err = chroma.NewTonnetz().ComputeMean(chromagram); err != nil {
		block.Error = "advanced statistics failed: " + err.Error()
	}

	return block
}

func (p *FeaturePipeline) genreStage(audio *transcode.AudioData) *features.GenrePrediction {
	result, err := p.runCapability(models.StageGenre, audio)
	if err != nil {
		return &features.GenrePrediction{Error: err.Error()}
	}
	return result.Genre
}

func (p *FeaturePipeline) emotionStage(audio *transcode.AudioData) *features.EmotionPrediction {
	result, err := p.runCapability(models.StageEmotion, audio)
	if err != nil {
		return &features.EmotionPrediction{Error: err.Error()}
	}
	return result.Emotion
}

func (p *FeaturePipeline) embeddingStage(audio *transcode.AudioData) *features.Embedding {
	result, err := p.runCapability(models.StageEmbedding, audio)
	if err != nil {
		return &features.Embedding{Error: err.Error()}
	}
	return result.Embedding
}

// fingerprintStage prefers a registered fingerprint capability; on its
// absence or runtime failure it falls back to spectrogram peak picking,
// which always succeeds on valid decoded audio.
func (p *FeaturePipeline) fingerprintStage(audio *transcode.AudioData, stft *spectral.STFTResult) *features.Fingerprint {
	if p.registry.IsAvailable(models.StageFingerprint) {
		result, err := p.registry.Run(models.StageFingerprint, audio.PCM, audio.SampleRate)
		if err == nil && result.Fingerprint != nil {
			return result.Fingerprint
		}
		if err != nil {
			p.logger.WithFields(logging.Fields{
				"function": "fingerprintStage",
				"error":    err.Error(),
			}).Warn("fingerprint model failed, using peak fallback")
		}
	}

	peaks, err := spectral.NewPeakPicker(nil).Pick(stft)
	if err != nil {
		return &features.Fingerprint{
			Method: features.MethodPeakFinding,
			Error:  "peak extraction failed: " + err.Error(),
		}
	}
	return &features.Fingerprint{
		Method: features.MethodPeakFinding,
		Peaks:  peaks,
	}
}

// runCapability invokes a registry stage, folding unavailability and
// runtime failure into one error the caller records as a block marker.
func (p *FeaturePipeline) runCapability(stage models.Stage, audio *transcode.AudioData) (*models.StageResult, error) {
	if !p.registry.IsAvailable(stage) {
		return nil, errors.New("stage unavailable: " + string(stage))
	}
	result, err := p.registry.Run(stage, audio.PCM, audio.SampleRate)
	if err != nil {
		return nil, err
	}
	return result, nil
}
