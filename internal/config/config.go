// Package config loads service settings from an optional YAML file, then
// applies environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Regrid  RegridConfig  `yaml:"regrid"`
	Output  OutputConfig  `yaml:"output"`
	Cache   CacheConfig   `yaml:"cache"`
	Dataset DatasetConfig `yaml:"dataset"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RegridConfig contains pipeline settings.
type RegridConfig struct {
	Workers     int     `yaml:"workers"`
	GridSpacing float64 `yaml:"grid_spacing"`
}

// OutputConfig contains artifact settings.
type OutputConfig struct {
	Format   string `yaml:"format"`
	Previews bool   `yaml:"previews"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	BatchSizeMB int           `yaml:"batch_size_mb"`
	BatchTTL    time.Duration `yaml:"batch_ttl"`
	InspectSize int           `yaml:"inspect_size"`
}

// DatasetConfig lists decoding backends in the order they are tried.
type DatasetConfig struct {
	Backends []string `yaml:"backends"`
}

// Load reads the YAML file at path (skipped when path is empty or missing),
// fills defaults, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			MaxUploadMB:     512,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Regrid: RegridConfig{
			Workers:     1,
			GridSpacing: 0.125,
		},
		Output: OutputConfig{
			Format: "xlsx",
		},
		Cache: CacheConfig{
			BatchSizeMB: 512,
			BatchTTL:    time.Hour,
			InspectSize: 128,
		},
		Dataset: DatasetConfig{
			Backends: []string{"netcdf", "native"},
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == "" {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = defaults.Server.MaxUploadMB
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Regrid.Workers == 0 {
		cfg.Regrid.Workers = defaults.Regrid.Workers
	}
	if cfg.Regrid.GridSpacing == 0 {
		cfg.Regrid.GridSpacing = defaults.Regrid.GridSpacing
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = defaults.Output.Format
	}
	if cfg.Cache.BatchSizeMB == 0 {
		cfg.Cache.BatchSizeMB = defaults.Cache.BatchSizeMB
	}
	if cfg.Cache.BatchTTL == 0 {
		cfg.Cache.BatchTTL = defaults.Cache.BatchTTL
	}
	if cfg.Cache.InspectSize == 0 {
		cfg.Cache.InspectSize = defaults.Cache.InspectSize
	}
	if len(cfg.Dataset.Backends) == 0 {
		cfg.Dataset.Backends = defaults.Dataset.Backends
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("DATASET_BACKENDS"); v != "" {
		cfg.Dataset.Backends = splitList(v)
	}
	if v := os.Getenv("OUTPUT_PREVIEWS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OUTPUT_PREVIEWS %q: %w", v, err)
		}
		cfg.Output.Previews = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"REGRID_WORKERS", &cfg.Regrid.Workers},
		{"MAX_UPLOAD_MB", &cfg.Server.MaxUploadMB},
		{"INSPECT_CACHE_SIZE", &cfg.Cache.InspectSize},
		{"BATCH_CACHE_MB", &cfg.Cache.BatchSizeMB},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"BATCH_TTL", &cfg.Cache.BatchTTL},
		{"SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
	}
	for _, e := range durations {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = d
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Regrid.Workers < 1 {
		return fmt.Errorf("regrid workers must be at least 1, got %d", c.Regrid.Workers)
	}
	if c.Regrid.GridSpacing <= 0 {
		return fmt.Errorf("grid spacing must be positive, got %v", c.Regrid.GridSpacing)
	}
	switch strings.ToLower(c.Output.Format) {
	case "xlsx", "csv":
	default:
		return fmt.Errorf("output format must be xlsx or csv, got %q", c.Output.Format)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	if c.Server.MaxUploadMB < 1 {
		return errors.New("max upload size must be at least 1 MB")
	}
	if c.Cache.BatchTTL <= 0 {
		return errors.New("batch TTL must be positive")
	}
	if c.Cache.BatchSizeMB < 1 {
		return errors.New("batch cache size must be at least 1 MB")
	}
	if c.Cache.InspectSize < 1 {
		return errors.New("inspect cache size must be at least 1")
	}
	return nil
}

// MaxUploadBytes returns the request body limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
