package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/whiteboard/internal/server"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	opts, err := loadConfig(nil, envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, server.DefaultConfig(), opts.Server)
	assert.Equal(t, slog.LevelInfo, opts.Level)
	assert.Zero(t, opts.Discover)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	opts, err := loadConfig(nil, envOf(map[string]string{
		"PORT":           "8080",
		"LOG_LEVEL":      "debug",
		"CORS_ORIGINS":   "https://board.example, http://localhost:3000",
		"EMPTY_ROOM_TTL": "30m",
		"MDNS_ENABLED":   "true",
	}))
	require.NoError(t, err)
	cfg := opts.Server

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelDebug, opts.Level)
	assert.Equal(t, []string{"https://board.example", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.EmptyRoomTTL)
	assert.Equal(t, 48*time.Hour, cfg.StaleRoomAge)
	assert.True(t, cfg.MDNSEnabled)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	opts, err := loadConfig(
		[]string{"--port", "9000", "--log-level", "warn", "--sweep-interval", "5m", "--discover", "2s"},
		envOf(map[string]string{"PORT": "8080", "LOG_LEVEL": "debug"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 9000, opts.Server.Port)
	assert.Equal(t, slog.LevelWarn, opts.Level)
	assert.Equal(t, 5*time.Minute, opts.Server.SweepInterval)
	assert.Equal(t, 2*time.Second, opts.Discover)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"bad PORT", nil, map[string]string{"PORT": "eighty"}},
		{"bad duration", nil, map[string]string{"STALE_ROOM_AGE": "two days"}},
		{"bad level", []string{"--log-level", "loud"}, nil},
		{"port out of range", []string{"--port", "70000"}, nil},
		{"zero sweep", []string{"--sweep-interval", "0s"}, nil},
		{"unknown flag", []string{"--nope"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.args, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}
