package chroma

import (
	"fmt"
	"math"
)

// Tonnetz projects chroma vectors onto the 6-dimensional tonal centroid
// space spanned by the circle of fifths, minor thirds, and major thirds.
type Tonnetz struct {
	basis [6][NumPitchClasses]float64
}

// NewTonnetz creates a tonnetz analyzer with a precomputed projection basis
func NewTonnetz() *Tonnetz {
	t := &Tonnetz{}
	for p := range NumPitchClasses {
		fifths := float64(p) * 7.0 * math.Pi / 6.0
		minorThirds := float64(p) * 3.0 * math.Pi / 2.0
		majorThirds := float64(p) * 2.0 * math.Pi / 3.0

		t.basis[0][p] = math.Sin(fifths)
		t.basis[1][p] = math.Cos(fifths)
		t.basis[2][p] = math.Sin(minorThirds)
		t.basis[3][p] = math.Cos(minorThirds)
		t.basis[4][p] = 0.5 * math.Sin(majorThirds)
		t.basis[5][p] = 0.5 * math.Cos(majorThirds)
	}
	return t
}

// ComputeFrame projects a single chroma vector onto the tonal centroid space.
// The chroma vector is L1-normalized before projection.
func (t *Tonnetz) ComputeFrame(chromaVector []float64) ([]float64, error) {
	if len(chromaVector) != NumPitchClasses {
		return nil, fmt.Errorf("chroma vector must have %d elements, got %d", NumPitchClasses, len(chromaVector))
	}

	norm := 0.0
	for _, v := range chromaVector {
		norm += math.Abs(v)
	}

	centroid := make([]float64, 6)
	if norm == 0 {
		return centroid, nil
	}

	for d := range 6 {
		sum := 0.0
		for p, v := range chromaVector {
			sum += t.basis[d][p] * v
		}
		centroid[d] = sum / norm
	}
	return centroid, nil
}

// ComputeMean computes the average tonal centroid over a chromagram
func (t *Tonnetz) ComputeMean(chromagram [][]float64) ([]float64, error) {
	if len(chromagram) == 0 {
		return nil, fmt.Errorf("empty chromagram")
	}

	mean := make([]float64, 6)
	for _, frame := range chromagram {
		centroid, err := t.ComputeFrame(frame)
		if err != nil {
			return nil, err
		}
		for i, v := range centroid {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(chromagram))
	}
	return mean, nil
}
