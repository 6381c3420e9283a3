package spectral

import (
	"fmt"
	"math"
)

// MFCCConfig holds configuration for MFCC extraction
type MFCCConfig struct {
	NumCoefficients int     `json:"num_coefficients"`
	NumFilters      int     `json:"num_filters"`
	MinFreq         float64 `json:"min_freq"`
	MaxFreq         float64 `json:"max_freq"`
	LifterCoeff     float64 `json:"lifter_coeff"`
}

// DefaultMFCCConfig returns a standard MFCC configuration
func DefaultMFCCConfig() *MFCCConfig {
	return &MFCCConfig{
		NumCoefficients: 20,
		NumFilters:      26,
		MinFreq:         0.0,
		MaxFreq:         8000.0,
		LifterCoeff:     22.0,
	}
}

// MFCC computes Mel-Frequency Cepstral Coefficients from STFT magnitudes
type MFCC struct {
	config     *MFCCConfig
	filterBank *MelFilterBank
	dctMatrix  [][]float64
}

// NewMFCC creates an MFCC extractor. A nil config uses defaults.
func NewMFCC(config *MFCCConfig) *MFCC {
	if config == nil {
		config = DefaultMFCCConfig()
	}
	return &MFCC{config: config}
}

// Compute extracts MFCC vectors from an STFT result, one vector per frame.
func (m *MFCC) Compute(stft *STFTResult) ([][]float64, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT result")
	}

	if err := m.initialize(stft); err != nil {
		return nil, err
	}

	coefficients := make([][]float64, stft.TimeFrames)
	power := make([]float64, stft.FreqBins)

	for frame := range stft.TimeFrames {
		for bin, mag := range stft.Magnitude[frame] {
			power[bin] = mag * mag
		}

		energies, err := m.filterBank.Apply(power)
		if err != nil {
			return nil, fmt.Errorf("filter bank failed: %w", err)
		}

		// A frame with no band energy gets a zero vector rather than the
		// cepstrum of the log floor
		totalEnergy := 0.0
		for _, e := range energies {
			totalEnergy += e
		}
		if totalEnergy == 0 {
			coefficients[frame] = make([]float64, m.config.NumCoefficients)
			continue
		}

		logEnergies := make([]float64, len(energies))
		for i, e := range energies {
			logEnergies[i] = math.Log(e + 1e-10)
		}

		coefficients[frame] = m.dct(logEnergies)
		m.lifter(coefficients[frame])
	}

	return coefficients, nil
}

// ComputeMean extracts MFCCs and averages them over time, producing
// one coefficient vector for the whole signal.
func (m *MFCC) ComputeMean(stft *STFTResult) ([]float64, error) {
	frames, err := m.Compute(stft)
	if err != nil {
		return nil, err
	}

	mean := make([]float64, m.config.NumCoefficients)
	for _, frame := range frames {
		for i, c := range frame {
			mean[i] += c
		}
	}
	for i := range mean {
		mean[i] /= float64(len(frames))
	}
	return mean, nil
}

func (m *MFCC) initialize(stft *STFTResult) error {
	if m.filterBank != nil && m.filterBank.FreqBins == stft.FreqBins {
		return nil
	}

	melScale := NewMelScale(stft.SampleRate)
	maxFreq := m.config.MaxFreq
	if maxFreq > float64(stft.SampleRate)/2.0 {
		maxFreq = float64(stft.SampleRate) / 2.0
	}

	fb, err := melScale.CreateFilterBank(m.config.NumFilters, stft.WindowSize, m.config.MinFreq, maxFreq)
	if err != nil {
		return fmt.Errorf("failed to create mel filter bank: %w", err)
	}
	m.filterBank = fb

	// DCT-II matrix mapping log mel energies to cepstral coefficients
	m.dctMatrix = make([][]float64, m.config.NumCoefficients)
	n := float64(m.config.NumFilters)
	for k := range m.config.NumCoefficients {
		m.dctMatrix[k] = make([]float64, m.config.NumFilters)
		for j := range m.config.NumFilters {
			m.dctMatrix[k][j] = math.Cos(math.Pi * float64(k) * (float64(j) + 0.5) / n)
		}
	}

	return nil
}

func (m *MFCC) dct(logEnergies []float64) []float64 {
	out := make([]float64, m.config.NumCoefficients)
	for k := range m.config.NumCoefficients {
		sum := 0.0
		for j, e := range logEnergies {
			sum += e * m.dctMatrix[k][j]
		}
		out[k] = sum
	}
	return out
}

func (m *MFCC) lifter(coeffs []float64) {
	if m.config.LifterCoeff <= 0 {
		return
	}
	for i := range coeffs {
		coeffs[i] *= 1.0 + (m.config.LifterCoeff/2.0)*math.Sin(math.Pi*float64(i)/m.config.LifterCoeff)
	}
}
