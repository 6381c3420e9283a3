package logging

import "testing"

func TestParseLevel(t *testing.T) {
	cases := []struct {
		name string
		want Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.name); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if DebugLevel.String() != "DEBUG" || FatalLevel.String() != "FATAL" {
		t.Error("level names do not round trip")
	}
	if Level(99).String() != "UNKNOWN" {
		t.Error("out-of-range level should stringify as UNKNOWN")
	}
}

func TestSetGlobalLoggerNil(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Errorf("nil global logger should fall back to NoOpLogger, got %T", GetGlobalLogger())
	}
}

func TestWithFieldsReturnsIndependentLogger(t *testing.T) {
	base := NewDefaultLoggerNoColor()
	derived := base.WithFields(Fields{"component": "test"}).(*DefaultLogger)

	if len(base.fields) != 0 {
		t.Error("WithFields mutated the parent logger")
	}
	if derived.fields["component"] != "test" {
		t.Error("derived logger lost its preset field")
	}

	derived.WithFields(Fields{"extra": 1})
	if _, ok := derived.fields["extra"]; ok {
		t.Error("WithFields mutated the receiver")
	}
}
