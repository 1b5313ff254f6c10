package jmte

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the engine
type Config struct {
	// ExprStartToken opens a directive region. Defaults to "${".
	ExprStartToken string `yaml:"expr_start_token"`
	// ExprEndToken closes a directive region. Defaults to "}".
	ExprEndToken string `yaml:"expr_end_token"`
	// Locale is a BCP 47 tag used for error messages and locale aware renderers.
	Locale string `yaml:"locale"`
	// ExpansionSizeFactor sizes the output buffer relative to the template length.
	ExpansionSizeFactor float64 `yaml:"expansion_size_factor"`
	// ReportNilTraversal reports paths that step through a nil intermediate
	// value instead of silently treating them as absent.
	ReportNilTraversal bool `yaml:"report_nil_traversal"`
	// CacheMaxSize is the maximum number of compiled templates to cache. 0 disables caching.
	CacheMaxSize int `yaml:"cache_max_size"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// LogFormat selects the log handler (text or json)
	LogFormat string `yaml:"log_format"`
}

// globalConfig is read from the environment during package initialization,
// before DefaultEngine is created.
var (
	globalConfig      = ConfigFromEnvironment()
	globalConfigMutex sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ExprStartToken:      "${",
		ExprEndToken:        "}",
		Locale:              "en",
		ExpansionSizeFactor: 1.2,
		ReportNilTraversal:  false,
		CacheMaxSize:        100,
		CacheTTL:            0,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// JMTE_EXPR_START
	if val := os.Getenv("JMTE_EXPR_START"); val != "" {
		config.ExprStartToken = val
	}

	// JMTE_EXPR_END
	if val := os.Getenv("JMTE_EXPR_END"); val != "" {
		config.ExprEndToken = val
	}

	// JMTE_LOCALE
	if val := os.Getenv("JMTE_LOCALE"); val != "" {
		config.Locale = val
	}

	// JMTE_EXPANSION_SIZE_FACTOR
	if val := os.Getenv("JMTE_EXPANSION_SIZE_FACTOR"); val != "" {
		if factor, err := strconv.ParseFloat(val, 64); err == nil {
			config.ExpansionSizeFactor = factor
		}
	}

	// JMTE_REPORT_NIL_TRAVERSAL
	if val := os.Getenv("JMTE_REPORT_NIL_TRAVERSAL"); val != "" {
		config.ReportNilTraversal = parseBool(val)
	}

	// JMTE_CACHE_MAX_SIZE
	if val := os.Getenv("JMTE_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// JMTE_CACHE_TTL
	if val := os.Getenv("JMTE_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// JMTE_LOG_LEVEL
	if val := os.Getenv("JMTE_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// JMTE_LOG_FORMAT
	if val := os.Getenv("JMTE_LOG_FORMAT"); val != "" {
		config.LogFormat = val
	}

	return config
}

// LoadConfigFile reads a YAML configuration file. Keys missing from the file
// keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	config := DefaultConfig()
	if err := yaml.NewDecoder(f).Decode(config); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.ExprStartToken == "" {
		config.ExprStartToken = defaults.ExprStartToken
	}
	if config.ExprEndToken == "" {
		config.ExprEndToken = defaults.ExprEndToken
	}
	if config.Locale == "" {
		config.Locale = defaults.Locale
	}
	if config.ExpansionSizeFactor == 0 {
		config.ExpansionSizeFactor = defaults.ExpansionSizeFactor
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.LogFormat == "" {
		config.LogFormat = defaults.LogFormat
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ExprStartToken == "" {
		return NewConfigurationError("ExprStartToken", "start token cannot be empty")
	}
	if c.ExprEndToken == "" {
		return NewConfigurationError("ExprEndToken", "end token cannot be empty")
	}
	if c.ExpansionSizeFactor < 0 {
		return NewConfigurationError("ExpansionSizeFactor", "expansion size factor cannot be negative")
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return NewConfigurationError("Locale", fmt.Sprintf("invalid locale %q: %v", c.Locale, err))
	}
	if c.CacheMaxSize < 0 {
		return NewConfigurationError("CacheMaxSize", "cache max size cannot be negative")
	}
	if c.CacheTTL < 0 {
		return NewConfigurationError("CacheTTL", "cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.LogLevel] {
		return NewConfigurationError("LogLevel", "invalid log level: "+c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return NewConfigurationError("LogFormat", "invalid log format: "+c.LogFormat)
	}

	return nil
}

// LocaleTag parses Locale, falling back to English.
func (c *Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
