package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/harrison/benchmaker/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config represents benchmaker configuration options
type Config struct {
	// DBPath is the SQLite database file. Empty means
	// $BENCHMAKER_HOME/benchmaker.sqlite.
	DBPath string `yaml:"db_path"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		DBPath:   "",
		LogLevel: logger.DefaultLevel,
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fileCfg.DBPath != "" {
		cfg.DBPath = expandHome(fileCfg.DBPath)
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(fileCfg.LogLevel))
	}

	return cfg, nil
}

// LoadDefaultConfig loads $BENCHMAKER_HOME/config.yaml.
func LoadDefaultConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfig(path)
}

// MergeWithFlags overrides file values with CLI flags. Nil means the flag
// was not given.
func (c *Config) MergeWithFlags(dbPath *string, logLevel *string) {
	if dbPath != nil {
		c.DBPath = expandHome(*dbPath)
	}
	if logLevel != nil {
		c.LogLevel = strings.ToLower(strings.TrimSpace(*logLevel))
	}
}

// ResolveDBPath fills an empty DBPath with the default database location.
func (c *Config) ResolveDBPath() error {
	if c.DBPath != "" {
		return nil
	}
	path, err := GetDBPath()
	if err != nil {
		return err
	}
	c.DBPath = path
	return nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %s", c.LogLevel, strings.Join(logger.Levels(), ", "))
	}

	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path cannot be empty")
	}

	return nil
}
