// Package main - config.go
//
// This file manages the bot configuration.
// It reads ferrybot.yaml (created with defaults on first start), overlays
// FERRYBOT_* environment variables and command-line flags, and validates the
// result. Every tuned detection constant lives here so nothing is hidden in
// the perception code.
package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultConfigPath is used when --config is not given
const DefaultConfigPath = "ferrybot.yaml"

// Backend names
const (
	BackendScreen  = "screen"  // Desktop capture + robotgo input
	BackendBrowser = "browser" // Chrome driven through chromedp
)

// TemplateConfig holds the token template image paths
type TemplateConfig struct {
	Missionary string `mapstructure:"missionary" validate:"required"`
	Cannibal   string `mapstructure:"cannibal" validate:"required"`
}

// CanvasConfig holds canvas locator settings
type CanvasConfig struct {
	Bands   []HSVBand `mapstructure:"bands" validate:"required,min=1,dive"`
	Kernel  int       `mapstructure:"kernel" validate:"gte=0"`
	MinArea float64   `mapstructure:"min_area" validate:"gte=0"`
}

// MatchConfig holds template matching settings
type MatchConfig struct {
	Threshold   float64 `mapstructure:"threshold" validate:"gt=0,lte=1"`
	DedupRadius float64 `mapstructure:"dedup_radius" validate:"gt=0"`
}

// BoatConfig holds boat detector settings
type BoatConfig struct {
	Band    HSVBand `mapstructure:"band"`
	TopMask float64 `mapstructure:"top_mask" validate:"gte=0,lte=1"`
	MinArea float64 `mapstructure:"min_area" validate:"gte=0"`
}

// DetectConfig groups all perception settings
type DetectConfig struct {
	Canvas CanvasConfig  `mapstructure:"canvas"`
	Match  MatchConfig   `mapstructure:"match"`
	Boat   BoatConfig    `mapstructure:"boat"`
	Aboard AboardMargins `mapstructure:"aboard"`
}

// TimingConfig holds the controller pacing
type TimingConfig struct {
	ObserveInterval time.Duration `mapstructure:"observe_interval"`                  // Pause before each observation
	BoardSettle     time.Duration `mapstructure:"board_settle"`                      // Wait after boarding clicks
	StrandedSettle  time.Duration `mapstructure:"stranded_settle"`                   // Wait after stranded cleanup
	ArrivalPoll     time.Duration `mapstructure:"arrival_poll"`                      // Interval between arrival checks
	ArrivalAttempts int           `mapstructure:"arrival_attempts" validate:"min=1"` // Arrival checks before giving up
	MoveDuration    time.Duration `mapstructure:"move_duration"`                     // Pointer travel time before a click
	ClickPause      time.Duration `mapstructure:"click_pause"`                       // Pause after each click
}

// LogConfig holds logging settings
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// DebugConfig holds debug frame dump settings
type DebugConfig struct {
	Enable bool   `mapstructure:"enable"` // Save an annotated frame per observation
	Dir    string `mapstructure:"dir"`
}

// Config is the main configuration object
type Config struct {
	Backend           string         `mapstructure:"backend" validate:"oneof=screen browser"`
	WindowTitle       string         `mapstructure:"window_title"`
	GameURL           string         `mapstructure:"game_url" validate:"required_if=Backend browser"`
	Templates         TemplateConfig `mapstructure:"templates"`
	Detect            DetectConfig   `mapstructure:"detect"`
	Timing            TimingConfig   `mapstructure:"timing"`
	UnsolvableRetries int            `mapstructure:"unsolvable_retries" validate:"gte=0"`
	Log               LogConfig      `mapstructure:"log"`
	Debug             DebugConfig    `mapstructure:"debug"`
	MetricsAddr       string         `mapstructure:"metrics_addr"`
	Tray              bool           `mapstructure:"tray"`

	path    string // File the config was read from
	created bool   // The file was written with the defaults by LoadConfig
}

// DefaultConfig returns the tuned defaults for the stock puzzle theme
func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendScreen,
		WindowTitle: "Misioneros",
		Templates: TemplateConfig{
			Missionary: "assets/missionary.png",
			Cannibal:   "assets/cannibal.png",
		},
		Detect: DetectConfig{
			Canvas: CanvasConfig{
				Bands: []HSVBand{
					{MinH: 120, MaxH: 160, MinS: 30, MaxS: 255, MinV: 30, MaxV: 120}, // purple sky
					{MinH: 40, MaxH: 85, MinS: 40, MaxS: 255, MinV: 30, MaxV: 180},   // green banks
				},
				Kernel:  15,
				MinArea: 100000,
			},
			Match: MatchConfig{
				Threshold:   0.45,
				DedupRadius: 30,
			},
			Boat: BoatConfig{
				Band:    HSVBand{MinH: 5, MaxH: 20, MinS: 80, MaxS: 255, MinV: 50, MaxV: 255},
				TopMask: 0.50,
				MinArea: 1500,
			},
			Aboard: AboardMargins{X: 100, Above: 100, Below: 50},
		},
		Timing: TimingConfig{
			ObserveInterval: time.Second,
			BoardSettle:     time.Second,
			StrandedSettle:  time.Second,
			ArrivalPoll:     time.Second,
			ArrivalAttempts: 10,
			MoveDuration:    100 * time.Millisecond,
			ClickPause:      200 * time.Millisecond,
		},
		UnsolvableRetries: 3,
		Log: LogConfig{
			Path:  "Debug.log",
			Level: "info",
		},
		Debug: DebugConfig{
			Enable: false,
			Dir:    "debug",
		},
	}
}

// setDefaults registers every default with viper so that env overrides and
// the generated file cover all keys
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("window_title", d.WindowTitle)
	v.SetDefault("game_url", d.GameURL)
	v.SetDefault("templates.missionary", d.Templates.Missionary)
	v.SetDefault("templates.cannibal", d.Templates.Cannibal)

	bands := make([]map[string]interface{}, 0, len(d.Detect.Canvas.Bands))
	for _, b := range d.Detect.Canvas.Bands {
		bands = append(bands, bandMap(b))
	}
	v.SetDefault("detect.canvas.bands", bands)
	v.SetDefault("detect.canvas.kernel", d.Detect.Canvas.Kernel)
	v.SetDefault("detect.canvas.min_area", d.Detect.Canvas.MinArea)
	v.SetDefault("detect.match.threshold", d.Detect.Match.Threshold)
	v.SetDefault("detect.match.dedup_radius", d.Detect.Match.DedupRadius)
	v.SetDefault("detect.boat.band", bandMap(d.Detect.Boat.Band))
	v.SetDefault("detect.boat.top_mask", d.Detect.Boat.TopMask)
	v.SetDefault("detect.boat.min_area", d.Detect.Boat.MinArea)
	v.SetDefault("detect.aboard.x", d.Detect.Aboard.X)
	v.SetDefault("detect.aboard.above", d.Detect.Aboard.Above)
	v.SetDefault("detect.aboard.below", d.Detect.Aboard.Below)

	v.SetDefault("timing.observe_interval", d.Timing.ObserveInterval.String())
	v.SetDefault("timing.board_settle", d.Timing.BoardSettle.String())
	v.SetDefault("timing.stranded_settle", d.Timing.StrandedSettle.String())
	v.SetDefault("timing.arrival_poll", d.Timing.ArrivalPoll.String())
	v.SetDefault("timing.arrival_attempts", d.Timing.ArrivalAttempts)
	v.SetDefault("timing.move_duration", d.Timing.MoveDuration.String())
	v.SetDefault("timing.click_pause", d.Timing.ClickPause.String())

	v.SetDefault("unsolvable_retries", d.UnsolvableRetries)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("debug.enable", d.Debug.Enable)
	v.SetDefault("debug.dir", d.Debug.Dir)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("tray", d.Tray)
}

func bandMap(b HSVBand) map[string]interface{} {
	return map[string]interface{}{
		"min_h": b.MinH, "max_h": b.MaxH,
		"min_s": b.MinS, "max_s": b.MaxS,
		"min_v": b.MinV, "max_v": b.MaxV,
	}
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"backend":      "backend",
	"url":          "game_url",
	"window":       "window_title",
	"tray":         "tray",
	"metrics-addr": "metrics_addr",
	"debug":        "debug.enable",
	"log-level":    "log.level",
}

// LoadConfig reads the config file at path, writing the defaults there first
// if it does not exist. flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetConfigFile(path)
	created := false

	// Check if the config exists, if not create default (before env and
	// flags are bound, so overrides stay out of the file)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := v.SafeWriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		created = true
	}

	v.SetEnvPrefix("FERRYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = path
	cfg.created = created

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the file the config was read from
func (c *Config) Path() string {
	return c.path
}

// Created reports whether LoadConfig wrote the default file
func (c *Config) Created() bool {
	return c.created
}

// configValidate checks the validate tags of the config structs. Field
// names in its errors are the config keys.
var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// Validate rejects values no detector or controller can work with
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Drop the root type name: "Config.detect.match.threshold"
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		errs = append(errs, fmt.Errorf("%s: %v fails %s", key, fe.Value(), rule))
	}
	return errors.Join(errs...)
}
