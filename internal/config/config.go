package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/spf13/viper"
)

const envPrefix = "TILEQUEUE"

// Config holds the application configuration
type Config struct {
	Location     string        `mapstructure:"location"`
	LogLevel     string        `mapstructure:"log_level"`
	Workers      uint          `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SelectLimit  int           `mapstructure:"select_limit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Location:     "tilequeue.db",
		LogLevel:     "info",
		Workers:      4,
		PollInterval: time.Second,
		SelectLimit:  queue.DefaultSelectLimit,
	}
}

// Load reads tilequeue.yaml from the working directory, or the file at path
// when one is given, and applies TILEQUEUE_* environment overrides on top of
// the defaults. A missing tilequeue.yaml is not an error; a missing path is.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tilequeue")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaultCfg := DefaultConfig()
	v.SetDefault("location", defaultCfg.Location)
	v.SetDefault("log_level", defaultCfg.LogLevel)
	v.SetDefault("workers", defaultCfg.Workers)
	v.SetDefault("poll_interval", defaultCfg.PollInterval)
	v.SetDefault("select_limit", defaultCfg.SelectLimit)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Location == "" {
		return queue.ErrNoLocation
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	if c.Workers == 0 {
		return errors.New("workers must be at least 1")
	}

	return nil
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger builds the text logger used across the process
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
