// Package features defines the feature record produced by the extraction
// pipeline and cached between calls.
package features

// Fingerprint methods
const (
	MethodNeuralNetwork = "neural_network"
	MethodPeakFinding   = "peak_finding"
)

// FeatureRecord holds every feature extracted from one audio input. The
// record is identified by AudioID, a content hash of the raw bytes, and is
// immutable once built. Optional blocks are nil when their stage was not
// requested; a block with a non-empty Error marker means that stage failed
// without invalidating the rest of the record.
type FeatureRecord struct {
	AudioID    string  `json:"audio_id"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`

	RMSEnergy         float64 `json:"rms_energy"`
	ZeroCrossingRate  float64 `json:"zero_crossing_rate"`
	SpectralCentroid  float64 `json:"spectral_centroid"`
	SpectralBandwidth float64 `json:"spectral_bandwidth"`
	SpectralRolloff   float64 `json:"spectral_rolloff"`
	Tempo             float64 `json:"tempo"`

	MFCCs          []float64 `json:"mfccs"`
	ChromaFeatures []float64 `json:"chroma_features"`

	AdvancedFeatures  *AdvancedFeatures  `json:"advanced_features,omitempty"`
	GenrePrediction   *GenrePrediction   `json:"genre_prediction,omitempty"`
	EmotionPrediction *EmotionPrediction `json:"emotion_prediction,omitempty"`
	AudioFingerprint  *Fingerprint       `json:"audio_fingerprint,omitempty"`
	AudioEmbedding    *Embedding         `json:"audio_embedding,omitempty"`

	ProcessingTime float64 `json:"processing_time"`

	// Error marks the whole record as unusable for comparison. Set only
	// when a record is reconstructed from a failed extraction.
	Error string `json:"error,omitempty"`
}

// AdvancedFeatures holds the extended signal statistics computed when the
// caller requests full extraction.
type AdvancedFeatures struct {
	HarmonicRMS      float64   `json:"harmonic_rms"`
	PercussiveRMS    float64   `json:"percussive_rms"`
	OnsetCount       int       `json:"onset_count"`
	OnsetRate        float64   `json:"onset_rate"`
	PitchMean        float64   `json:"pitch_mean"`
	SpectralContrast []float64 `json:"spectral_contrast"`
	Tonnetz          []float64 `json:"tonnetz"`
	TempoHistogram   []float64 `json:"tempo_histogram"`
	Error            string    `json:"error,omitempty"`
}

// GenreScore is one ranked genre candidate
type GenreScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// GenrePrediction holds the ranked genre candidates and full distribution
type GenrePrediction struct {
	TopGenres []GenreScore       `json:"top_genres"`
	AllGenres map[string]float64 `json:"all_genres"`
	Error     string             `json:"error,omitempty"`
}

// EmotionPrediction holds the dominant emotion and full distribution
type EmotionPrediction struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Emotions        map[string]float64 `json:"emotions"`
	Error           string             `json:"error,omitempty"`
}

// Fingerprint holds either a dense model-derived vector or a sparse set of
// spectrogram peaks, distinguished by Method. Peaks are (frequency bin,
// time frame) pairs.
type Fingerprint struct {
	Method string    `json:"method"`
	Vector []float64 `json:"vector,omitempty"`
	Peaks  [][2]int  `json:"peaks,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Embedding holds a dense semantic embedding vector
type Embedding struct {
	Vector []float64 `json:"vector,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Usable reports whether the record can participate in comparison
func (r *FeatureRecord) Usable() bool {
	return r != nil && r.Error == ""
}
