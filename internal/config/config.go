package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Source   SourceConfig      `toml:"source"`
	Supabase SupabaseConfig    `toml:"supabase"`
	Cache    CacheConfig       `toml:"cache"`
	Colors   map[string]string `toml:"colors"`
	Log      LogConfig         `toml:"log"`
}

type SourceConfig struct {
	Kind   string `toml:"kind"` // "sqlite" or "supabase"
	DBPath string `toml:"db_path"`
}

type SupabaseConfig struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
}

type CacheConfig struct {
	TTLSeconds     int `toml:"ttl_seconds"`
	PrefetchMonths int `toml:"prefetch_months"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind: "sqlite",
		},
		Cache: CacheConfig{
			TTLSeconds:     300,
			PrefetchMonths: 2,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// TTL is the cache freshness window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "sqlite":
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return fmt.Errorf("supabase source needs url and anon_key; run 'gigcal config' to set them up")
		}
	default:
		return fmt.Errorf("unknown source kind %q, expected sqlite or supabase", c.Source.Kind)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.Cache.PrefetchMonths < 0 {
		return fmt.Errorf("cache prefetch_months must not be negative, got %d", c.Cache.PrefetchMonths)
	}
	return nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("GIGCAL_CONFIG_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gigcal"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DBPath is the configured database path, defaulting to gigcal.db in the
// config directory.
func (c *Config) DBPath() (string, error) {
	if c.Source.DBPath != "" {
		return c.Source.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gigcal.db"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GIGCAL_SOURCE"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("GIGCAL_DB_PATH"); v != "" {
		cfg.Source.DBPath = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.Supabase.AnonKey = v
	}
	if v := os.Getenv("GIGCAL_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("GIGCAL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default config to path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// SaveColors persists color overrides to the config file using a
// read-modify-write approach to preserve other settings.
func SaveColors(colors map[string]string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	existing, ok := cfg["colors"].(map[string]any)
	if !ok {
		existing = make(map[string]any)
	}
	for k, v := range colors {
		existing[k] = v
	}
	cfg["colors"] = existing

	if err := EnsureConfigDir(); err != nil {
		return err
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
