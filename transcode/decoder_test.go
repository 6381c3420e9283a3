package transcode

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestParseFFprobeOutput(t *testing.T) {
	jsonData := []byte(`{
		"streams": [{
			"codec_type": "audio",
			"codec_name": "mp3",
			"sample_rate": "44100",
			"channels": 2,
			"duration": "180.5",
			"bit_rate": "128000"
		}]
	}`)

	meta, err := parseFFprobeOutput(jsonData)
	if err != nil {
		t.Fatalf("parseFFprobeOutput failed: %v", err)
	}
	if meta.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", meta.SampleRate)
	}
	if meta.Channels != 2 {
		t.Errorf("channels = %d, want 2", meta.Channels)
	}
	if meta.Codec != "mp3" {
		t.Errorf("codec = %q, want mp3", meta.Codec)
	}
	if meta.Duration != 180.5 {
		t.Errorf("duration = %f, want 180.5", meta.Duration)
	}
}

func TestParseFFprobeOutputRejectsBadStreams(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"no streams", `{"streams": []}`},
		{"video stream", `{"streams": [{"codec_type": "video", "channels": 1}]}`},
		{"bad channel count", `{"streams": [{"codec_type": "audio", "channels": 0}]}`},
		{"invalid json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseFFprobeOutput([]byte(tc.json)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBytesToFloat64(t *testing.T) {
	values := []float64{0.0, 0.5, -0.5, 1.0, -1.0}
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}

	samples := bytesToFloat64(data)
	if len(samples) != len(values) {
		t.Fatalf("got %d samples, want %d", len(samples), len(values))
	}
	for i, want := range values {
		if samples[i] != want {
			t.Errorf("sample %d = %f, want %f", i, samples[i], want)
		}
	}
}

func TestBytesToFloat64SanitizesNonFinite(t *testing.T) {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint64(data[0:], math.Float64bits(math.NaN()))
	binary.LittleEndian.PutUint64(data[8:], math.Float64bits(math.Inf(1)))
	binary.LittleEndian.PutUint64(data[16:], math.Float64bits(0.25))

	samples := bytesToFloat64(data)
	if samples[0] != 0 || samples[1] != 0 {
		t.Errorf("non-finite samples = %v, want zeros", samples[:2])
	}
	if samples[2] != 0.25 {
		t.Errorf("sample 2 = %f, want 0.25", samples[2])
	}
}

func TestDecodeErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &DecodeError{Reason: "probe failed", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("DecodeError does not unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("empty error message")
	}
}

func TestDefaultDecoderConfig(t *testing.T) {
	cfg := DefaultDecoderConfig()
	if cfg.TargetSampleRate != 22050 {
		t.Errorf("target sample rate = %d, want 22050", cfg.TargetSampleRate)
	}
	if cfg.TargetChannels != 1 {
		t.Errorf("target channels = %d, want 1", cfg.TargetChannels)
	}
}
