// Package config holds harvester configuration and route-plan loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all tunables for a harvest run.
type Config struct {
	BaseURL   string
	UserAgent string

	// Harvesting loop.
	ScrollStep          int           // pixels advanced per scroll step
	ScrollSettle        time.Duration // wait after each scroll before re-measuring
	NoProgressThreshold int           // consecutive unchanged steps before settling
	MaxScrollSteps      int           // absolute bound on scroll steps
	SettlePasses        int           // forced scroll-to-bottom passes in the settling phase
	// DedupeMaxSize caps the per-route seen-identity set. Identity
	// uniqueness is only guaranteed up to this many records per run; an
	// evicted identity could be emitted again. Size it well above the
	// largest route.
	DedupeMaxSize int

	// Route job runner.
	MaxRetries int
	RetryDelay time.Duration // base for the linear backoff (delay * attempt)

	// Batch coordinator.
	Concurrency int
	JobTimeout  time.Duration
	SkipFailed  bool

	// Rendering surface.
	Visible     bool // run the browser visibly instead of headless
	MemorySaver bool // enable the aggressive memory-saving browser flags

	OutputDir   string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the defaults the production runs used.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             "https://www.redbus.in/",
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ScrollStep:          1500,
		ScrollSettle:        2 * time.Second,
		NoProgressThreshold: 6,
		MaxScrollSteps:      30,
		SettlePasses:        3,
		DedupeMaxSize:       4096,
		MaxRetries:          5,
		RetryDelay:          5 * time.Second,
		Concurrency:         3,
		JobTimeout:          time.Hour,
		SkipFailed:          true,
		Visible:             false,
		MemorySaver:         true,
		OutputDir:           "output",
		MetricsAddr:         "",
		Verbose:             false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ScrollStep <= 0 {
		return fmt.Errorf("scroll step must be positive")
	}
	if c.ScrollSettle <= 0 {
		return fmt.Errorf("scroll settle duration must be positive")
	}
	if c.NoProgressThreshold < 1 {
		return fmt.Errorf("no-progress threshold must be at least 1")
	}
	if c.MaxScrollSteps < c.NoProgressThreshold {
		return fmt.Errorf("max scroll steps (%d) cannot be below the no-progress threshold (%d)", c.MaxScrollSteps, c.NoProgressThreshold)
	}
	if c.SettlePasses < 0 {
		return fmt.Errorf("settle passes cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job timeout must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return nil
}

// EnvInt reads an integer override from the environment.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}

// EnvString reads a string override from the environment.
func EnvString(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

// EnvBool reads a boolean override from the environment.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}
