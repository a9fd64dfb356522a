// Package config loads settings from defaults, a YAML file, a .env file
// and GUIDEPILOT_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/guidepilot/internal/input"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/ocr"
	"github.com/mj1618/guidepilot/internal/platform"
	"github.com/mj1618/guidepilot/internal/preprocess"
	"github.com/mj1618/guidepilot/internal/window"
)

// DefaultFile is read when --config is not given and the file exists.
const DefaultFile = "guidepilot.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GUIDEPILOT_"

type Config struct {
	Window  WindowConfig  `yaml:"window"`
	OCR     OCRConfig     `yaml:"ocr"`
	Input   InputConfig   `yaml:"input"`
	Macro   MacroConfig   `yaml:"macro"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type WindowConfig struct {
	// Title is bound on startup when set.
	Title       string        `yaml:"title"`
	FocusSettle time.Duration `yaml:"focus_settle"`
}

type OCRConfig struct {
	Language   string  `yaml:"language"`
	Whitelist  string  `yaml:"whitelist"`
	Threshold  int     `yaml:"threshold"`
	Scale      float64 `yaml:"scale"`
	Similarity float64 `yaml:"similarity"`
	Invert     bool    `yaml:"invert"`
	// Zone is an optional listening zone "x,y,w,h" in screen pixels.
	Zone string `yaml:"zone"`
	// HoldKey is held down while capturing, e.g. "z" to show name tags.
	HoldKey       string        `yaml:"hold_key"`
	HoldSettle    time.Duration `yaml:"hold_settle"`
	DebugDir      string        `yaml:"debug_dir"`
	AnnotateDebug bool          `yaml:"annotate_debug"`
}

type InputConfig struct {
	Settle    time.Duration `yaml:"settle"`
	Hold      time.Duration `yaml:"hold"`
	CharDelay time.Duration `yaml:"char_delay"`
}

type MacroConfig struct {
	ChatKey    string `yaml:"chat_key"`
	ConfirmKey string `yaml:"confirm_key"`
	PanelKey   string `yaml:"panel_key"`
	// PanelClick is "x,y" relative to the client area.
	PanelClick      string        `yaml:"panel_click"`
	CommandTemplate string        `yaml:"command_template"`
	AutoTravel      bool          `yaml:"auto_travel"`
	Timings         macro.Timings `yaml:"timings"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	it := input.DefaultTimings()
	return &Config{
		Window: WindowConfig{FocusSettle: window.DefaultFocusSettle},
		OCR: OCRConfig{
			Language:      "eng",
			Whitelist:     ocr.DefaultWhitelist,
			Threshold:     int(preprocess.DefaultThreshold),
			Scale:         preprocess.DefaultScale,
			Similarity:    ocr.DefaultSimilarity,
			HoldSettle:    50 * time.Millisecond,
			DebugDir:      "ocr_screens",
			AnnotateDebug: true,
		},
		Input: InputConfig{Settle: it.Settle, Hold: it.Hold, CharDelay: it.CharDelay},
		Macro: MacroConfig{
			ChatKey:         "space",
			ConfirmKey:      "enter",
			PanelKey:        "h",
			CommandTemplate: "/travel {x},{y}",
			AutoTravel:      true,
			Timings:         macro.DefaultTimings(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// File is the YAML config path. Empty tries DefaultFile.
	File string
	// EnvFile is the dotenv path. Empty tries ".env".
	EnvFile string
}

// Load builds the configuration. A missing default file or .env is not an
// error; a missing explicit file is.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, explicit := opts.File, opts.File != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && opts.EnvFile != "" {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, set func(string) error) {
		if v := getenv(EnvPrefix + key); v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("WINDOW_TITLE", &c.Window.Title)
	str("OCR_LANGUAGE", &c.OCR.Language)
	str("OCR_ZONE", &c.OCR.Zone)
	str("OCR_HOLD_KEY", &c.OCR.HoldKey)
	str("DEBUG_DIR", &c.OCR.DebugDir)
	str("MACRO_PANEL_KEY", &c.Macro.PanelKey)
	str("MACRO_PANEL_CLICK", &c.Macro.PanelClick)
	str("MACRO_COMMAND_TEMPLATE", &c.Macro.CommandTemplate)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("METRICS_ADDR", &c.Metrics.Addr)

	num("OCR_THRESHOLD", func(v string) (err error) { c.OCR.Threshold, err = strconv.Atoi(v); return })
	num("OCR_SCALE", func(v string) (err error) { c.OCR.Scale, err = strconv.ParseFloat(v, 64); return })
	num("OCR_SIMILARITY", func(v string) (err error) { c.OCR.Similarity, err = strconv.ParseFloat(v, 64); return })
	num("AUTO_TRAVEL", func(v string) (err error) { c.Macro.AutoTravel, err = strconv.ParseBool(v); return })
	return errors.Join(errs...)
}

// Validate checks ranges and parses the string-encoded fields once.
func (c *Config) Validate() error {
	var errs []error
	if c.OCR.Threshold < 0 || c.OCR.Threshold > 255 {
		errs = append(errs, fmt.Errorf("ocr.threshold must be 0-255, got %d", c.OCR.Threshold))
	}
	if !(c.OCR.Scale >= 1 && c.OCR.Scale <= preprocess.MaxScale) {
		errs = append(errs, fmt.Errorf("ocr.scale must be 1-%v, got %v", preprocess.MaxScale, c.OCR.Scale))
	}
	if !(c.OCR.Similarity > 0 && c.OCR.Similarity <= 1) {
		errs = append(errs, fmt.Errorf("ocr.similarity must be in (0,1], got %v", c.OCR.Similarity))
	}
	if _, err := c.Zone(); err != nil {
		errs = append(errs, err)
	}
	if c.OCR.HoldKey != "" {
		if _, err := input.ParseKey(c.OCR.HoldKey); err != nil {
			errs = append(errs, fmt.Errorf("ocr.hold_key: %w", err))
		}
	}
	if _, err := c.MacroKeys(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Zone returns the parsed listening zone, or nil when unset.
func (c *Config) Zone() (*platform.Rect, error) {
	if strings.TrimSpace(c.OCR.Zone) == "" {
		return nil, nil
	}
	r, err := platform.ParseRect(c.OCR.Zone)
	if err != nil {
		return nil, fmt.Errorf("ocr.zone: %w", err)
	}
	return r, nil
}

// MacroKeys resolves the macro key names and panel point.
func (c *Config) MacroKeys() (macro.Keys, error) {
	var k macro.Keys
	var err error
	if k.Chat, err = input.ParseKey(c.Macro.ChatKey); err != nil {
		return k, fmt.Errorf("macro.chat_key: %w", err)
	}
	if k.Confirm, err = input.ParseKey(c.Macro.ConfirmKey); err != nil {
		return k, fmt.Errorf("macro.confirm_key: %w", err)
	}
	if k.Panel, err = input.ParseKey(c.Macro.PanelKey); err != nil {
		return k, fmt.Errorf("macro.panel_key: %w", err)
	}
	if k.PanelClick, err = ParsePoint(c.Macro.PanelClick); err != nil {
		return k, fmt.Errorf("macro.panel_click: %w", err)
	}
	return k, nil
}

// InputTimings converts the input section.
func (c *Config) InputTimings() input.Timings {
	return input.Timings{Settle: c.Input.Settle, Hold: c.Input.Hold, CharDelay: c.Input.CharDelay}
}

// ParsePoint parses "x,y". An empty string is the zero point.
func ParsePoint(s string) (image.Point, error) {
	if strings.TrimSpace(s) == "" {
		return image.Point{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return image.Point{}, fmt.Errorf("invalid point %q: expected x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return image.Pt(x, y), nil
}
