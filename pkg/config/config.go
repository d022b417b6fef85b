package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. DOCFORENSICS_ELA_QUALITY
const EnvPrefix = "DOCFORENSICS"

// Log level and format names accepted by Validate, matched case-insensitively.
// An empty value means info level and text format.
var (
	LogLevels  = []string{"", "debug", "info", "warn", "warning", "error"}
	LogFormats = []string{"", "text", "json"}
)

// Config holds every tunable of the forensic engine and its CLI
type Config struct {
	ELA    ELAConfig    `mapstructure:"ela"`
	Render RenderConfig `mapstructure:"render"`
	Rules  RulesConfig  `mapstructure:"rules"`
	Input  InputConfig  `mapstructure:"input"`
	Log    LogConfig    `mapstructure:"log"`
}

// ELAConfig controls the lossy re-save and the visibility of the residual
type ELAConfig struct {
	Quality         int     `mapstructure:"quality"`          // JPEG quality used for the re-save (1-100)
	Amplification   float64 `mapstructure:"amplification"`    // multiplier applied to the raw residual
	BrightThreshold int     `mapstructure:"bright_threshold"` // amplified value counted as a bright pixel
}

// RenderConfig controls PDF rasterization
type RenderConfig struct {
	DPI          int           `mapstructure:"dpi"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PdftoppmPath string        `mapstructure:"pdftoppm_path"`
}

// RulesConfig feeds the red-flag classifier
type RulesConfig struct {
	Keywords     []string `mapstructure:"keywords"`      // scanned in document author/tool fields
	EditingTools []string `mapstructure:"editing_tools"` // scanned in image software tags
	FlagAnyEdit  bool     `mapstructure:"flag_any_edit"` // flag any creation/modification mismatch, not only inversions
}

type InputConfig struct {
	MaxFileSize  int64         `mapstructure:"max_file_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // bound on downloading one document URL
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ELA: ELAConfig{
			Quality:         90,
			Amplification:   20,
			BrightThreshold: 100,
		},
		Render: RenderConfig{
			DPI:          300,
			Timeout:      60 * time.Second,
			PdftoppmPath: "pdftoppm",
		},
		Rules: RulesConfig{
			Keywords:     []string{"photoshop", "gimp", "adobe", "pixelmator", "i love pdf", "modified"},
			EditingTools: []string{"photoshop", "gimp", "adobe", "pixelmator"},
			FlagAnyEdit:  false,
		},
		Input: InputConfig{
			MaxFileSize:  100 * 1024 * 1024,
			FetchTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path, or searches the default locations when path is empty.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("docforensics")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".docforensics"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("ela.quality", d.ELA.Quality)
	v.SetDefault("ela.amplification", d.ELA.Amplification)
	v.SetDefault("ela.bright_threshold", d.ELA.BrightThreshold)

	v.SetDefault("render.dpi", d.Render.DPI)
	v.SetDefault("render.timeout", d.Render.Timeout)
	v.SetDefault("render.pdftoppm_path", d.Render.PdftoppmPath)

	v.SetDefault("rules.keywords", d.Rules.Keywords)
	v.SetDefault("rules.editing_tools", d.Rules.EditingTools)
	v.SetDefault("rules.flag_any_edit", d.Rules.FlagAnyEdit)

	v.SetDefault("input.max_file_size", d.Input.MaxFileSize)
	v.SetDefault("input.fetch_timeout", d.Input.FetchTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.ELA.Quality < 1 || c.ELA.Quality > 100 {
		return fmt.Errorf("ela.quality must be within 1-100, got %d", c.ELA.Quality)
	}
	if c.ELA.Amplification <= 0 {
		return fmt.Errorf("ela.amplification must be positive, got %g", c.ELA.Amplification)
	}
	if c.ELA.BrightThreshold < 0 || c.ELA.BrightThreshold > 255 {
		return fmt.Errorf("ela.bright_threshold must be within 0-255, got %d", c.ELA.BrightThreshold)
	}
	if c.Render.DPI <= 0 {
		return fmt.Errorf("render.dpi must be positive, got %d", c.Render.DPI)
	}
	if c.Render.Timeout < 0 {
		return fmt.Errorf("render.timeout must not be negative, got %s", c.Render.Timeout)
	}
	if c.Input.MaxFileSize <= 0 {
		return fmt.Errorf("input.max_file_size must be positive, got %d", c.Input.MaxFileSize)
	}
	if c.Input.FetchTimeout < 0 {
		return fmt.Errorf("input.fetch_timeout must not be negative, got %s", c.Input.FetchTimeout)
	}
	if !slices.Contains(LogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	if !slices.Contains(LogFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
