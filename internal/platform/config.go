package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notesd/pkg/core"
)

// FileConfig is the content of notesd.yaml. Zero values fall back to
// DefaultConfig.
type FileConfig struct {
	Host        string  `yaml:"host"`
	Port        int     `yaml:"port"`
	DB          string  `yaml:"db"`
	StaticDir   string  `yaml:"static_dir"`
	ReadBuffer  int     `yaml:"read_buffer"`
	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`
	IDPolicy    string  `yaml:"id_policy"`
	Versioning  bool    `yaml:"versioning"`
	ReadOnly    bool    `yaml:"read_only"`
	LogLevel    string  `yaml:"log_level"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() FileConfig {
	return FileConfig{
		Host:        "0.0.0.0",
		Port:        8001,
		DB:          DefaultStoreFile,
		ReadBuffer:  4096,
		AcceptRate:  0,
		AcceptBurst: 0,
		IDPolicy:    string(core.IDPolicySize),
		LogLevel:    "info",
	}
}

// LoadConfig reads path and fills missing values from DefaultConfig.
// An empty path searches upwards from the working directory; finding nothing
// is not an error.
func LoadConfig(path string) (FileConfig, error) {
	cfg := DefaultConfig()

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, nil
		}
		found, err := FindConfig(wd)
		if err != nil {
			return cfg, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.merge(file)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *FileConfig) merge(o FileConfig) {
	if o.Host != "" {
		c.Host = o.Host
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.DB != "" {
		c.DB = o.DB
	}
	if o.StaticDir != "" {
		c.StaticDir = o.StaticDir
	}
	if o.ReadBuffer != 0 {
		c.ReadBuffer = o.ReadBuffer
	}
	if o.AcceptRate != 0 {
		c.AcceptRate = o.AcceptRate
	}
	if o.AcceptBurst != 0 {
		c.AcceptBurst = o.AcceptBurst
	}
	if o.IDPolicy != "" {
		c.IDPolicy = o.IDPolicy
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	c.Versioning = c.Versioning || o.Versioning
	c.ReadOnly = c.ReadOnly || o.ReadOnly
}

// Validate reports the first invalid setting.
func (c FileConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ReadBuffer <= 0 {
		return errors.New("read_buffer must be positive")
	}
	if c.AcceptRate < 0 || c.AcceptBurst < 0 {
		return errors.New("accept_rate and accept_burst must not be negative")
	}
	if _, err := core.ParseIDPolicy(c.IDPolicy); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Options translates the file settings into store options.
func (c FileConfig) Options() []Option {
	return []Option{
		WithIDPolicy(core.IDPolicy(c.IDPolicy)),
		WithVersioning(c.Versioning),
		WithAutoInit(true),
		WithReadOnly(c.ReadOnly),
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
