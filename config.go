package chunkstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/chunkstore/internal/cachecodec"
)

// Config is the file form of a store's settings, as read by the CLI.
//
//	backend:
//	  type: local
//	  path: /var/lib/chunks
//	store:
//	  name: movie
//	  chunk_length: 262144
//	  compression: zstd
//	  files:
//	    - path: a.bin
//	      length: 1000000
//	log:
//	  level: info
//	  format: json
//
// ${VAR} references are expanded from the environment before parsing.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig selects and addresses a storage backend.
type BackendConfig struct {
	// Type is one of "local", "memory", "minio" or "s3".
	Type string `yaml:"type"`

	// Path is the root directory of the local backend.
	Path string `yaml:"path,omitempty"`

	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Secure    bool   `yaml:"secure,omitempty"`
}

// StoreConfig holds the Store options.
type StoreConfig struct {
	Name        string       `yaml:"name,omitempty"`
	ChunkLength int          `yaml:"chunk_length"`
	TotalLength *int64       `yaml:"total_length,omitempty"`
	Files       []FileConfig `yaml:"files,omitempty"`
	Compression string       `yaml:"compression,omitempty"`

	MemoryCacheBytes    int64 `yaml:"memory_cache_bytes,omitempty"`
	MemoryLimitBytes    int64 `yaml:"memory_limit_bytes,omitempty"`
	IOLimitBytesPerSec  int64 `yaml:"io_limit_bytes_per_sec,omitempty"`
	MaxConcurrentWrites int   `yaml:"max_concurrent_writes,omitempty"`
}

// FileConfig is one logical file.
type FileConfig struct {
	Path   string `yaml:"path"`
	Length int64  `yaml:"length"`
	Offset *int64 `yaml:"offset,omitempty"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error" or "off".
	Level string `yaml:"level,omitempty"`
	// Format is "text" or "json".
	Format string `yaml:"format,omitempty"`
}

// DefaultConfig returns a config for a local backend in the working
// directory.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{Type: "local", Path: "."},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses a YAML config document on top of DefaultConfig.
// Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields New does not check itself.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case "local", "memory", "minio", "s3":
	default:
		return fmt.Errorf("%w: unknown backend type %q", ErrInvalidConfiguration, c.Backend.Type)
	}
	if _, err := cachecodec.Parse(c.Store.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Options converts the store and log sections to Options for New.
func (c *Config) Options() ([]Option, error) {
	codec, err := cachecodec.Parse(c.Store.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	logger, err := c.Log.Logger()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithCacheCompression(codec),
		WithMemoryCache(c.Store.MemoryCacheBytes, c.Store.MemoryLimitBytes),
		WithIOLimit(c.Store.IOLimitBytesPerSec),
		WithMaxConcurrentWrites(c.Store.MaxConcurrentWrites),
	}
	if c.Store.Name != "" {
		opts = append(opts, WithName(c.Store.Name))
	}
	if c.Store.TotalLength != nil {
		opts = append(opts, WithTotalLength(*c.Store.TotalLength))
	}
	if len(c.Store.Files) > 0 {
		files := make([]LogicalFile, len(c.Store.Files))
		for i, f := range c.Store.Files {
			files[i] = LogicalFile(f)
		}
		opts = append(opts, WithFiles(files...))
	}
	return opts, nil
}

// Logger builds the configured logger.
func (c LogConfig) Logger() (*Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return NoopLogger(), nil
	}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return NewTextLogger(*level), nil
	case "json":
		return NewJSONLogger(*level), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfiguration, c.Format)
	}
}

// parseLevel returns nil for "off".
func parseLevel(s string) (*slog.Level, error) {
	if strings.EqualFold(s, "off") {
		return nil, nil
	}
	var level slog.Level
	if s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfiguration, s)
		}
	}
	return &level, nil
}
