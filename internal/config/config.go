package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration reads TOML strings such as "750ms" or "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ScannersConfig struct {
	MaxConcurrency int      `toml:"max_concurrency"`
	Timeout        Duration `toml:"timeout"`
	BatchDeadline  Duration `toml:"batch_deadline"`
	MaxRetries     uint64   `toml:"max_retries"`
	RetryBackoff   Duration `toml:"retry_backoff"`
	SimulatedDelay Duration `toml:"simulated_delay"`
	Disabled       []string `toml:"disabled"`
}

type NormalizationConfig struct {
	DefaultCountryCode string `toml:"default_country_code"`
	FoldGmailDots      bool   `toml:"fold_gmail_dots"`
}

type PostgresConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
	Migrate  bool   `toml:"migrate"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console|json
}

type Config struct {
	Scanners      ScannersConfig      `toml:"scanners"`
	Normalization NormalizationConfig `toml:"normalization"`
	Postgres      PostgresConfig      `toml:"postgres"`
	Memgraph      MemgraphConfig      `toml:"memgraph"`
	Server        ServerConfig        `toml:"server"`
	Log           LogConfig           `toml:"log"`
}

// Defaults runs without any external services: memory store, no graph.
func Defaults() *Config {
	return &Config{
		Scanners: ScannersConfig{
			MaxConcurrency: 8,
			Timeout:        Duration{5 * time.Second},
			BatchDeadline:  Duration{15 * time.Second},
			RetryBackoff:   Duration{200 * time.Millisecond},
		},
		Postgres: PostgresConfig{MaxConns: 10, Migrate: true},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a TOML file on top of Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Scanners.MaxConcurrency < 1 {
		return fmt.Errorf("scanners.max_concurrency must be at least 1, got %d", c.Scanners.MaxConcurrency)
	}
	if c.Scanners.Timeout.Duration < 0 || c.Scanners.BatchDeadline.Duration < 0 {
		return fmt.Errorf("scanner timeouts must not be negative")
	}
	cc := strings.TrimPrefix(c.Normalization.DefaultCountryCode, "+")
	if _, err := strconv.Atoi(cc); cc != "" && (err != nil || len(cc) > 3) {
		return fmt.Errorf("normalization.default_country_code %q is not a calling code", c.Normalization.DefaultCountryCode)
	}
	return nil
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DEFAULT_COUNTRY_CODE"); v != "" {
		c.Normalization.DefaultCountryCode = v
	}
	if v := os.Getenv("SCAN_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanners.MaxConcurrency = n
		}
	}
}
