package logger

import (
	"testing"

	"github.com/sirupsen/logrus"

	"cab/internal/config"
)

func TestNew_ParsesLevelAndFormat(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       config.LogConfig
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"debug json", config.LogConfig{Level: "debug", Format: "json"}, logrus.DebugLevel, true},
		{"warn text", config.LogConfig{Level: "warn", Format: "text"}, logrus.WarnLevel, false},
		{"unknown level falls back", config.LogConfig{Level: "chatty"}, logrus.InfoLevel, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(tc.cfg)
			if l.GetLevel() != tc.wantLevel {
				t.Errorf("expected level %s, got %s", tc.wantLevel, l.GetLevel())
			}
			_, isJSON := l.Formatter.(*logrus.JSONFormatter)
			if isJSON != tc.wantJSON {
				t.Errorf("expected json formatter=%v, got %T", tc.wantJSON, l.Formatter)
			}
		})
	}
}
