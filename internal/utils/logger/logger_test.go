package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		debugLevel bool
	}{
		{name: "local logs debug", env: envLocal, debugLevel: true},
		{name: "empty env falls back to local", env: "", debugLevel: true},
		{name: "dev logs debug", env: envDev, debugLevel: true},
		{name: "prod skips debug", env: envProd, debugLevel: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.env)

			assert.NotNil(t, log)
			assert.Equal(t, tt.debugLevel, log.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestNewDiscard(t *testing.T) {
	log := NewDiscard()

	assert.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("dropped", "key", "value") })
}

func TestNewQuiet(t *testing.T) {
	log := NewQuiet()

	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, log.Enabled(context.Background(), slog.LevelWarn))
}
