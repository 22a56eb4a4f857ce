package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Numeric service: "local" computes in-process, "remote" calls ServiceURL.
	Service    string `mapstructure:"service" yaml:"service"`
	ServiceURL string `mapstructure:"service_url" yaml:"service_url"`

	// Task fan-out
	Workers        int `mapstructure:"workers" yaml:"workers"`
	TaskTimeoutSec int `mapstructure:"task_timeout_sec" yaml:"task_timeout_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Analysis defaults
	ConfidenceLevel float64 `mapstructure:"confidence_level" yaml:"confidence_level"`
	ExtremeCount    int     `mapstructure:"extreme_count" yaml:"extreme_count"`
	OutputFormat    string  `mapstructure:"output_format" yaml:"output_format"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".statloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.statloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("STATLOOM")
	v.AutomaticEnv()

	v.SetDefault("service", "local")
	v.SetDefault("service_url", "")
	v.SetDefault("workers", 0)
	v.SetDefault("task_timeout_sec", 30)
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 200)
	v.SetDefault("retry_max_delay_ms", 2000)
	v.SetDefault("confidence_level", 95.0)
	v.SetDefault("extreme_count", 5)
	v.SetDefault("output_format", "text")
	v.SetDefault("log_level", "warn")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"service", "service_url", "workers", "task_timeout_sec",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"confidence_level", "extreme_count", "output_format", "log_level",
}

// Get returns the string form of a key's value.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "service":
		return c.Service, nil
	case "service_url":
		return c.ServiceURL, nil
	case "workers":
		return strconv.Itoa(c.Workers), nil
	case "task_timeout_sec":
		return strconv.Itoa(c.TaskTimeoutSec), nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), nil
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), nil
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), nil
	case "confidence_level":
		return strconv.FormatFloat(c.ConfidenceLevel, 'f', -1, 64), nil
	case "extreme_count":
		return strconv.Itoa(c.ExtremeCount), nil
	case "output_format":
		return c.OutputFormat, nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val and assigns it to key.
func (c *Global) Set(key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "service":
		switch strings.ToLower(val) {
		case "local", "remote":
			c.Service = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid service: %s (use local or remote)", val)
		}
	case "service_url":
		c.ServiceURL = val
	case "workers":
		c.Workers, err = atoi(0)
	case "task_timeout_sec":
		c.TaskTimeoutSec, err = atoi(1)
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(0)
	case "confidence_level":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f <= 0 || f >= 100 {
			return fmt.Errorf("invalid confidence_level: %v (must be between 0 and 100)", val)
		}
		c.ConfidenceLevel = f
	case "extreme_count":
		c.ExtremeCount, err = atoi(1)
	case "output_format":
		switch strings.ToLower(val) {
		case "text", "markdown", "json", "xlsx":
			c.OutputFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid output_format: %s (use text, markdown, json or xlsx)", val)
		}
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
