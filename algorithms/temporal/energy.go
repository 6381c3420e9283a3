package temporal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Energy provides time-domain energy measurements
type Energy struct{}

// NewEnergy creates a new energy analyzer
func NewEnergy() *Energy {
	return &Energy{}
}

// ComputeRMS computes the root mean square amplitude of a signal
func (e *Energy) ComputeRMS(signal []float64) (float64, error) {
	if len(signal) == 0 {
		return 0, fmt.Errorf("empty signal")
	}
	sumSquares := floats.Dot(signal, signal)
	return math.Sqrt(sumSquares / float64(len(signal))), nil
}

// ComputeFrameRMS computes RMS per frame for the given frame and hop sizes
func (e *Energy) ComputeFrameRMS(signal []float64, frameSize, hopSize int) ([]float64, error) {
	if len(signal) < frameSize {
		return nil, fmt.Errorf("signal shorter than frame size")
	}
	if frameSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("frame size and hop size must be positive")
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	rms := make([]float64, numFrames)
	for i := range numFrames {
		frame := signal[i*hopSize : i*hopSize+frameSize]
		sumSquares := floats.Dot(frame, frame)
		rms[i] = math.Sqrt(sumSquares / float64(frameSize))
	}
	return rms, nil
}

// ZeroCrossingRate computes the fraction of adjacent sample pairs whose
// signs differ.
func (e *Energy) ZeroCrossingRate(signal []float64) (float64, error) {
	if len(signal) < 2 {
		return 0, fmt.Errorf("signal too short for zero crossing analysis")
	}

	crossings := 0
	for i := 1; i < len(signal); i++ {
		if (signal[i-1] >= 0) != (signal[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(signal)-1), nil
}
