// Package models provides the capability registry for optional feature
// extraction stages. Each capability wraps one model or heuristic and is
// registered under its stage name; the pipeline checks availability before
// fanning out and treats absent stages as skippable.
package models

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-huella/pipeline/features"
)

// Stage identifies an optional extraction stage
type Stage string

// Optional stages
const (
	StageGenre       Stage = "genre"
	StageEmotion     Stage = "emotion"
	StageFingerprint Stage = "fingerprint"
	StageEmbedding   Stage = "embedding"
)

// ErrStageUnavailable indicates no capability is registered for a stage
var ErrStageUnavailable = errors.New("stage unavailable")

// StageResult carries the output of one capability. Exactly one field is
// populated, matching the capability's stage.
type StageResult struct {
	Genre       *features.GenrePrediction
	Emotion     *features.EmotionPrediction
	Fingerprint *features.Fingerprint
	Embedding   *features.Embedding
}

// Capability is one pluggable extraction stage. Implementations must be
// safe for concurrent use; the registry is read-only after construction.
type Capability interface {
	Stage() Stage
	Run(samples []float64, sampleRate int) (*StageResult, error)
}

// Registry holds the set of available capabilities, keyed by stage
type Registry struct {
	capabilities map[Stage]Capability
}

// NewRegistry creates a registry from the given capabilities. Later
// entries for the same stage replace earlier ones.
func NewRegistry(capabilities ...Capability) *Registry {
	r := &Registry{capabilities: make(map[Stage]Capability, len(capabilities))}
	for _, c := range capabilities {
		r.capabilities[c.Stage()] = c
	}
	return r
}

// NewDefaultRegistry creates a registry with the built-in heuristic
// capabilities for genre, emotion and embedding. No fingerprint capability
// is registered, so fingerprinting uses the spectrogram peak fallback.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		NewGenreClassifier(nil),
		NewEmotionDetector(nil),
		NewEmbeddingExtractor(nil),
	)
}

// IsAvailable reports whether a capability is registered for the stage
func (r *Registry) IsAvailable(stage Stage) bool {
	_, ok := r.capabilities[stage]
	return ok
}

// Run invokes the capability for the stage. Returns ErrStageUnavailable if
// none is registered; any other error is a runtime failure of the
// capability itself.
func (r *Registry) Run(stage Stage, samples []float64, sampleRate int) (*StageResult, error) {
	c, ok := r.capabilities[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageUnavailable, stage)
	}
	return c.Run(samples, sampleRate)
}

// Stages returns the stages with a registered capability
func (r *Registry) Stages() []Stage {
	stages := make([]Stage, 0, len(r.capabilities))
	for s := range r.capabilities {
		stages = append(stages, s)
	}
	return stages
}
