package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.Detect.Canvas.Kernel)
	assert.Equal(t, 100000.0, cfg.Detect.Canvas.MinArea)
	assert.Equal(t, 0.45, cfg.Detect.Match.Threshold)
	assert.Equal(t, 30.0, cfg.Detect.Match.DedupRadius)
	assert.Equal(t, 1500.0, cfg.Detect.Boat.MinArea)
	assert.Equal(t, AboardMargins{X: 100, Above: 100, Below: 50}, cfg.Detect.Aboard)
	assert.Equal(t, 10, cfg.Timing.ArrivalAttempts)
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferrybot.yaml")

	cfg, err := LoadConfig(path, nil)

	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, cfg.Path())
	assert.True(t, cfg.Created())

	want := DefaultConfig()
	assert.Equal(t, want.Detect, cfg.Detect)
	assert.Equal(t, want.Timing, cfg.Timing)
	assert.Equal(t, want.Templates, cfg.Templates)
	assert.Equal(t, want.UnsolvableRetries, cfg.UnsolvableRetries)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferrybot.yaml")
	content := `
detect:
  match:
    threshold: 0.6
timing:
  arrival_attempts: 4
  arrival_poll: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path, nil)

	require.NoError(t, err)
	assert.False(t, cfg.Created())
	assert.Equal(t, 0.6, cfg.Detect.Match.Threshold)
	assert.Equal(t, 4, cfg.Timing.ArrivalAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.ArrivalPoll)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30.0, cfg.Detect.Match.DedupRadius)
	assert.Len(t, cfg.Detect.Canvas.Bands, 2)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferrybot.yaml")
	t.Setenv("FERRYBOT_DETECT_MATCH_THRESHOLD", "0.7")
	t.Setenv("FERRYBOT_UNSOLVABLE_RETRIES", "1")

	cfg, err := LoadConfig(path, nil)

	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.Detect.Match.Threshold)
	assert.Equal(t, 1, cfg.UnsolvableRetries)

	// The generated file keeps the defaults.
	again, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.7, again.Detect.Match.Threshold)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0.45")
}

func TestLoadConfigFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferrybot.yaml")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", BackendScreen, "")
	flags.String("url", "", "")
	flags.Bool("debug", false, "")
	require.NoError(t, flags.Parse([]string{"--backend", "browser", "--url", "http://localhost:8080", "--debug"}))

	cfg, err := LoadConfig(path, flags)

	require.NoError(t, err)
	assert.Equal(t, BackendBrowser, cfg.Backend)
	assert.Equal(t, "http://localhost:8080", cfg.GameURL)
	assert.True(t, cfg.Debug.Enable)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ferrybot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: carrier-pigeon\n"), 0644))

	_, err := LoadConfig(path, nil)

	assert.ErrorContains(t, err, `backend: carrier-pigeon fails oneof=screen browser`)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"threshold above one", func(c *Config) { c.Detect.Match.Threshold = 1.5 }, "detect.match.threshold: 1.5 fails lte=1"},
		{"zero threshold", func(c *Config) { c.Detect.Match.Threshold = 0 }, "detect.match.threshold: 0 fails gt=0"},
		{"zero radius", func(c *Config) { c.Detect.Match.DedupRadius = 0 }, "detect.match.dedup_radius"},
		{"no attempts", func(c *Config) { c.Timing.ArrivalAttempts = 0 }, "timing.arrival_attempts: 0 fails min=1"},
		{"inverted boat band", func(c *Config) { c.Detect.Boat.Band.MinH, c.Detect.Boat.Band.MaxH = 20, 5 }, "detect.boat.band.min_h: 20 fails ltefield=MaxH"},
		{"canvas band out of range", func(c *Config) { c.Detect.Canvas.Bands[1].MaxV = 300 }, "detect.canvas.bands[1].max_v"},
		{"no canvas bands", func(c *Config) { c.Detect.Canvas.Bands = nil }, "detect.canvas.bands"},
		{"browser without url", func(c *Config) { c.Backend = BackendBrowser }, "game_url"},
		{"negative margin", func(c *Config) { c.Detect.Aboard.Below = -1 }, "detect.aboard.below"},
		{"top mask", func(c *Config) { c.Detect.Boat.TopMask = 1.2 }, "detect.boat.top_mask"},
		{"negative retries", func(c *Config) { c.UnsolvableRetries = -1 }, "unsolvable_retries"},
		{"no template", func(c *Config) { c.Templates.Cannibal = "" }, "templates.cannibal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestConfigValidateReportsEveryField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detect.Match.Threshold = 2
	cfg.Timing.ArrivalAttempts = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "detect.match.threshold")
	assert.Contains(t, err.Error(), "timing.arrival_attempts")
}

func TestConfigValidateBrowserWithURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendBrowser
	cfg.GameURL = "http://localhost:8080"

	assert.NoError(t, cfg.Validate())
}
