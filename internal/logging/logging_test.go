package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := New("prod", tt.level).GetLevel(); got != tt.want {
			t.Errorf("New(%q) level = %s, want %s", tt.level, got, tt.want)
		}
	}
}
