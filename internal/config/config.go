// Package config provides configuration management for markup using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration file is .markup.yml in the working directory unless
// --config or MARKUP_CONFIG_FILE names another one. Every key can be
// overridden with a MARKUP_ environment variable, for example
// MARKUP_PREVIEW_PORT=9000 or MARKUP_RENDER_PRIORITIZE_STORED=true.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/markup/internal/logging"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/render"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MARKUP"

// EnvConfigFile names the environment variable holding a config file path.
const EnvConfigFile = "MARKUP_CONFIG_FILE"

// Default values.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 8080
	DefaultDebounce = 100 * time.Millisecond
)

type Config struct {
	Render  RenderConfig  `mapstructure:"render" yaml:"render" json:"render"`
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview" json:"preview"`
}

type RenderConfig struct {
	PrioritizeStored bool   `mapstructure:"prioritize_stored" yaml:"prioritize_stored" json:"prioritize_stored"`
	IndexName        string `mapstructure:"index_name" yaml:"index_name" json:"index_name"`
	ItemName         string `mapstructure:"item_name" yaml:"item_name" json:"item_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

type PreviewConfig struct {
	Host     string        `mapstructure:"host" yaml:"host" json:"host"`
	Port     int           `mapstructure:"port" yaml:"port" json:"port"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("render.prioritize_stored", false)
	v.SetDefault("render.index_name", render.DefaultIndexName)
	v.SetDefault("render.item_name", render.DefaultItemName)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("preview.host", DefaultHost)
	v.SetDefault("preview.port", DefaultPort)
	v.SetDefault("preview.debounce", DefaultDebounce)
}

// Init points v at its config file and enables environment overrides.
// An explicit file wins over MARKUP_CONFIG_FILE, which wins over
// .markup.yml in the working directory. A missing default file is not an
// error; a missing explicit file is.
func Init(v *viper.Viper, file string) error {
	explicit := true
	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv(EnvConfigFile) != "":
		v.SetConfigFile(os.Getenv(EnvConfigFile))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".markup")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	return nil
}

// Load unmarshals v into a Config, fills blank values with defaults and
// validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, markuperrors.NewConfigError("cannot decode configuration").WithCause(err)
	}

	if config.Render.IndexName == "" {
		config.Render.IndexName = render.DefaultIndexName
	}
	if config.Render.ItemName == "" {
		config.Render.ItemName = render.DefaultItemName
	}
	if config.Preview.Host == "" {
		config.Preview.Host = DefaultHost
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

var bindingName = regexp.MustCompile(`^[\w-]+$`)

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	for key, name := range map[string]string{
		"render.index_name": config.Render.IndexName,
		"render.item_name":  config.Render.ItemName,
	} {
		if !bindingName.MatchString(name) {
			return markuperrors.NewConfigError(fmt.Sprintf("%s %q is not a valid binding name", key, name)).
				WithContext("key", key)
		}
	}
	if config.Render.IndexName == config.Render.ItemName {
		return markuperrors.NewConfigError("render.index_name and render.item_name must differ").
			WithContext("key", "render.item_name")
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return markuperrors.NewConfigError(err.Error()).WithContext("key", "log.level")
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return markuperrors.NewConfigError(fmt.Sprintf("log format %q is not text or json", config.Log.Format)).
			WithContext("key", "log.format")
	}

	// Allow 0 for system-assigned ports in testing.
	if config.Preview.Port < 0 || config.Preview.Port > 65535 {
		return markuperrors.NewConfigError(fmt.Sprintf("port %d is not in valid range 0-65535", config.Preview.Port)).
			WithContext("key", "preview.port")
	}
	if strings.ContainsAny(config.Preview.Host, ";&|$`()<>\"'\\ /") {
		return markuperrors.NewConfigError(fmt.Sprintf("host %q contains an invalid character", config.Preview.Host)).
			WithContext("key", "preview.host")
	}
	if config.Preview.Debounce < 0 {
		return markuperrors.NewConfigError("preview.debounce must not be negative").
			WithContext("key", "preview.debounce")
	}

	return nil
}

// RenderOptions returns the render options the configuration asks for.
func (c *Config) RenderOptions() []render.Option {
	if c.Render.PrioritizeStored {
		return []render.Option{render.PrioritizeStored()}
	}

	return nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() *logging.MarkupLogger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format

	return logging.NewLogger(cfg)
}

// Addr returns the preview listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Preview.Host, c.Preview.Port)
}
