package log_test

import (
	"log/slog"
	"testing"

	"github.com/dukex/ruleforge/pkg/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for name, expected := range tests {
		assert.Equal(t, expected, log.ParseLevel(name), name)
	}
}
