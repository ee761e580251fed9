package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "json", &buf)
	logger.Info("tiles ranked", "tiles", 4)
	logger.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tiles ranked", entry["msg"])
	assert.Equal(t, Program, entry["program"])
	assert.Equal(t, float64(4), entry["tiles"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelDebug, "TEXT", &buf)
	logger.Debug("sky map loaded", "nside", 256)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "program="+Program)
	assert.Contains(t, buf.String(), "nside=256")
}

func TestParseLevel(t *testing.T) {
	data := []struct {
		Input string
		Want  slog.Level
	}{
		{Input: "debug", Want: slog.LevelDebug},
		{Input: "INFO", Want: slog.LevelInfo},
		{Input: "warn", Want: slog.LevelWarn},
		{Input: "warning", Want: slog.LevelWarn},
		{Input: "error", Want: slog.LevelError},
		{Input: "verbose", Want: slog.LevelInfo},
		{Input: "", Want: slog.LevelInfo},
	}
	for _, d := range data {
		assert.Equal(t, d.Want, ParseLevel(d.Input), d.Input)
	}
}
