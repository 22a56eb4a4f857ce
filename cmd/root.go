package cmd

import (
	"fmt"
	"os"
	"time"

	cfgpkg "github.com/KaramelBytes/statloom-cli/internal/config"
	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	debug   bool
	// Service/fan-out flags (override config if set)
	flagService        string
	flagServiceURL     string
	flagWorkers        int
	flagTaskTimeoutSec int
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "statloom",
	Short: "StatLoom CLI: exploratory statistics for tabular data",
	Long: `StatLoom computes descriptive statistics, robust M-estimators, percentiles and
extreme values for numeric variables, optionally split by factor variables, and
renders them as text, Markdown, JSON or Excel tables.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.statloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagService, "service", "", "numeric service: local | remote (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagServiceURL, "service-url", "", "base URL of the remote numeric service (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "concurrent computations (0 = one per CPU)")
	rootCmd.PersistentFlags().IntVar(&flagTaskTimeoutSec, "task-timeout", 0, "per-computation timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	applyOverrides(cfg)
}

// applyOverrides copies explicitly set persistent flags onto c.
func applyOverrides(c *cfgpkg.Global) {
	f := rootCmd.PersistentFlags()
	if f.Changed("service") && flagService != "" {
		c.Service = flagService
	}
	if f.Changed("service-url") && flagServiceURL != "" {
		c.ServiceURL = flagServiceURL
	}
	if f.Changed("workers") && flagWorkers >= 0 {
		c.Workers = flagWorkers
	}
	if f.Changed("task-timeout") && flagTaskTimeoutSec > 0 {
		c.TaskTimeoutSec = flagTaskTimeoutSec
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		c.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		c.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		c.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		c.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
}

// effectiveConfig returns the loaded config, loading it on first use. When
// loading fails it falls back to built-in defaults plus flag overrides.
func effectiveConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	if cfg != nil {
		return cfg
	}
	c := &cfgpkg.Global{
		Service:          examine.ServiceLocal,
		TaskTimeoutSec:   30,
		HTTPTimeoutSec:   30,
		RetryMaxAttempts: 3,
		RetryBaseDelayMs: 200,
		RetryMaxDelayMs:  2000,
		ConfidenceLevel:  examine.DefaultConfidenceLevel,
		ExtremeCount:     examine.DefaultExtremeCount,
		OutputFormat:     "text",
		LogLevel:         "warn",
	}
	applyOverrides(c)
	return c
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// reserved for rendered tables.
func newLogger(c *cfgpkg.Global) (*zap.Logger, error) {
	if debug {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{"stderr"}
		return zc.Build()
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// newService resolves the configured numeric service.
func newService(c *cfgpkg.Global, log *zap.Logger) (examine.Service, error) {
	name := c.Service
	if name == "" {
		name = examine.ServiceLocal
	}
	svc, ok := examine.New(name, examine.Config{
		URL:         c.ServiceURL,
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		Logger:      log,
	})
	if !ok {
		return nil, fmt.Errorf("unknown service: %s (use local or remote)", name)
	}
	if name == examine.ServiceRemote && c.ServiceURL == "" {
		return nil, fmt.Errorf("service %q requires --service-url or service_url in config", name)
	}
	return svc, nil
}
