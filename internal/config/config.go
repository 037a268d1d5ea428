// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and IMAGE_BUDGET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-budget-mcp/internal/compress"
	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// EnvPrefix is prepended to every environment override, e.g. IMAGE_BUDGET_TARGET_KB.
const EnvPrefix = "IMAGE_BUDGET"

type Config struct {
	TargetKB float64 `mapstructure:"target_kb"`
	Quality  int     `mapstructure:"quality"`
	MinScale float64 `mapstructure:"min_scale"`

	AlphaMode  string `mapstructure:"alpha_mode"`
	Background string `mapstructure:"background"`

	HTTPAddr          string        `mapstructure:"http_addr"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	AllowedImageTypes []string      `mapstructure:"allowed_image_types"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func Default() *Config {
	return &Config{
		TargetKB:          compress.DefaultTargetKB,
		Quality:           compress.DefaultQuality,
		MinScale:          compress.DefaultMinScale,
		AlphaMode:         "drop",
		Background:        "#FFFFFF",
		HTTPAddr:          ":8080",
		MaxUploadBytes:    10 << 20,
		AllowedImageTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff"},
		FetchTimeout:      imaging.DefaultFetchTimeout,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// setDefaults registers every key so AutomaticEnv can resolve overrides for
// keys that appear in neither the file nor the flags.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("target_kb", cfg.TargetKB)
	v.SetDefault("quality", cfg.Quality)
	v.SetDefault("min_scale", cfg.MinScale)
	v.SetDefault("alpha_mode", cfg.AlphaMode)
	v.SetDefault("background", cfg.Background)
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("max_upload_bytes", cfg.MaxUploadBytes)
	v.SetDefault("allowed_image_types", cfg.AllowedImageTypes)
	v.SetDefault("fetch_timeout", cfg.FetchTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
}

// Load reads configuration. When cfgFile is empty, image-budget.yaml is
// searched for in the working directory and the user config directory; a
// missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith is Load on a caller-supplied viper instance, which lets the CLI
// bind flags before loading.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := Default()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("image-budget")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "image-budget"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	err := validation.ValidateStruct(c,
		validation.Field(&c.AlphaMode, validation.In("drop", "composite")),
		validation.Field(&c.Background, validation.By(func(value interface{}) error {
			_, err := imaging.ParseBackground(value.(string))
			return err
		})),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.AllowedImageTypes, validation.Required),
		validation.Field(&c.FetchTimeout, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("console", "json")),
	)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Params returns the default compression parameters.
func (c *Config) Params() compress.Params {
	return compress.Params{
		TargetKB: c.TargetKB,
		Quality:  c.Quality,
		MinScale: c.MinScale,
	}
}

// NormalizeOptions returns the alpha handling settings.
func (c *Config) NormalizeOptions() (imaging.NormalizeOptions, error) {
	mode, err := imaging.ParseAlphaMode(c.AlphaMode)
	if err != nil {
		return imaging.NormalizeOptions{}, err
	}
	bg, err := imaging.ParseBackground(c.Background)
	if err != nil {
		return imaging.NormalizeOptions{}, err
	}
	return imaging.NormalizeOptions{Alpha: mode, Background: bg}, nil
}
