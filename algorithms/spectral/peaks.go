package spectral

import (
	"fmt"
	"sort"
)

// PeakPickerConfig holds configuration for spectrogram peak detection
type PeakPickerConfig struct {
	MaxPeaks     int     `json:"max_peaks"`
	RelThreshold float64 `json:"rel_threshold"` // Fraction of global maximum
}

// DefaultPeakPickerConfig returns a standard peak picker configuration
func DefaultPeakPickerConfig() *PeakPickerConfig {
	return &PeakPickerConfig{
		MaxPeaks:     250,
		RelThreshold: 0.5,
	}
}

// PeakPicker detects salient local maxima in a magnitude spectrogram.
// Each peak is a (frequency bin, time frame) coordinate pair.
type PeakPicker struct {
	config *PeakPickerConfig
}

type peak struct {
	bin       int
	frame     int
	magnitude float64
}

// NewPeakPicker creates a peak picker. A nil config uses defaults.
func NewPeakPicker(config *PeakPickerConfig) *PeakPicker {
	if config == nil {
		config = DefaultPeakPickerConfig()
	}
	return &PeakPicker{config: config}
}

// Pick returns up to MaxPeaks local maxima above the relative threshold,
// strongest first. Ties break on ascending (bin, frame) so the result is
// deterministic for identical input.
func (pp *PeakPicker) Pick(stft *STFTResult) ([][2]int, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT result")
	}

	globalMax := 0.0
	for _, frame := range stft.Magnitude {
		for _, mag := range frame {
			if mag > globalMax {
				globalMax = mag
			}
		}
	}
	if globalMax == 0 {
		return [][2]int{}, nil
	}

	threshold := pp.config.RelThreshold * globalMax

	var peaks []peak
	for t := range stft.TimeFrames {
		for bin := range stft.FreqBins {
			mag := stft.Magnitude[t][bin]
			if mag <= threshold {
				continue
			}
			if pp.isLocalMax(stft, t, bin, mag) {
				peaks = append(peaks, peak{bin: bin, frame: t, magnitude: mag})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].magnitude != peaks[j].magnitude {
			return peaks[i].magnitude > peaks[j].magnitude
		}
		if peaks[i].bin != peaks[j].bin {
			return peaks[i].bin < peaks[j].bin
		}
		return peaks[i].frame < peaks[j].frame
	})

	if len(peaks) > pp.config.MaxPeaks {
		peaks = peaks[:pp.config.MaxPeaks]
	}

	result := make([][2]int, len(peaks))
	for i, p := range peaks {
		result[i] = [2]int{p.bin, p.frame}
	}
	return result, nil
}

// isLocalMax checks the 4-connected neighborhood in the time-frequency plane
func (pp *PeakPicker) isLocalMax(stft *STFTResult, t, bin int, mag float64) bool {
	if bin > 0 && stft.Magnitude[t][bin-1] >= mag {
		return false
	}
	if bin < stft.FreqBins-1 && stft.Magnitude[t][bin+1] > mag {
		return false
	}
	if t > 0 && stft.Magnitude[t-1][bin] >= mag {
		return false
	}
	if t < stft.TimeFrames-1 && stft.Magnitude[t+1][bin] > mag {
		return false
	}
	return true
}
