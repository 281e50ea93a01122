package veloxql

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema"

	"gopkg.in/yaml.v3"
)

// Config is the file configuration of a client.
//
//	dialect: postgres
//	dsn: postgres://localhost/shop?sslmode=disable
//	schema: schema.yaml
//	log_level: debug
//	slow_threshold: 200ms
type Config struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
	// Schema is the path of the schema file, relative to the config file.
	Schema        string        `yaml:"schema"`
	LogLevel      string        `yaml:"log_level"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("veloxql: read config: %w", err)
	}
	cfg, err := ParseConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
		cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
	}
	return cfg, nil
}

// ParseConfig decodes a YAML configuration and validates it.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("veloxql: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the dialect name and log level.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return fmt.Errorf("veloxql: config: missing dialect")
	}
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		return fmt.Errorf("veloxql: config: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.SlowThreshold < 0 {
		return fmt.Errorf("veloxql: config: negative slow_threshold")
	}
	return nil
}

// Level returns the configured log level. It defaults to info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("veloxql: config: log_level: %w", err)
	}
	return l, nil
}

// Open returns a client for the configuration. The schema file, if set,
// becomes the registry of the client. A logger writing to stderr at the
// configured level is used unless opts set one.
func Open(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, _ := dialect.Lookup(cfg.Dialect)
	level, _ := cfg.Level()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
	}
	if cfg.Schema != "" {
		reg, err := schema.LoadFile(cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("veloxql: load schema: %w", err)
		}
		base = append(base, WithRegistry(reg))
	}
	return NewClient(d, append(base, opts...)...), nil
}
