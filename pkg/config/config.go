// Package config handles Skein configuration via environment variables and
// an optional YAML file.
//
// Environment variables take the SKEIN_ prefix and override file values.
// The query front-end stores these knobs but never interprets them; they
// are consumed by the scheduler and runtime.
//
// Example:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	fmt.Printf("query timeout: %v\n", cfg.Query.Timeout)
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Skein configuration.
type Config struct {
	Query QueryConfig `yaml:"query"`
	Pool  PoolConfig  `yaml:"pool"`
	Cache CacheConfig `yaml:"cache"`
}

// QueryConfig bounds individual query execution.
type QueryConfig struct {
	// Timeout caps query execution; zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// ResultSetSize caps the number of result rows; negative means
	// unlimited.
	ResultSetSize int64 `yaml:"resultset_size"`

	// MemCapacityBytes caps per-query memory; zero means unlimited.
	MemCapacityBytes int64 `yaml:"mem_capacity_bytes"`
}

// PoolConfig sizes the worker pool queries run on.
type PoolConfig struct {
	// ThreadCount is the number of query workers. Defaults to the number
	// of CPUs.
	ThreadCount int `yaml:"thread_count"`

	// MaxQueuedQueries caps the pending-query queue; zero means unbounded.
	MaxQueuedQueries int `yaml:"max_queued_queries"`
}

// CacheConfig sizes the per-graph query cache.
type CacheConfig struct {
	// QueryCacheSize is the number of cached query plans per graph.
	QueryCacheSize int `yaml:"query_cache_size"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Query: QueryConfig{
			Timeout:       0,
			ResultSetSize: -1,
		},
		Pool: PoolConfig{
			ThreadCount: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			QueryCacheSize: 25,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment, in increasing priority.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv("SKEIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SKEIN_TIMEOUT: %w", err)
		}
		c.Query.Timeout = d
	}
	if v := os.Getenv("SKEIN_RESULTSET_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SKEIN_RESULTSET_SIZE: %w", err)
		}
		c.Query.ResultSetSize = n
	}
	if v := os.Getenv("SKEIN_QUERY_MEM_CAPACITY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SKEIN_QUERY_MEM_CAPACITY: %w", err)
		}
		c.Query.MemCapacityBytes = n
	}
	if v := os.Getenv("SKEIN_THREAD_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKEIN_THREAD_COUNT: %w", err)
		}
		c.Pool.ThreadCount = n
	}
	if v := os.Getenv("SKEIN_MAX_QUEUED_QUERIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKEIN_MAX_QUEUED_QUERIES: %w", err)
		}
		c.Pool.MaxQueuedQueries = n
	}
	if v := os.Getenv("SKEIN_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKEIN_CACHE_SIZE: %w", err)
		}
		c.Cache.QueryCacheSize = n
	}
	return nil
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	if c.Query.Timeout < 0 {
		return fmt.Errorf("query timeout must be non-negative, got %v", c.Query.Timeout)
	}
	if c.Pool.ThreadCount < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", c.Pool.ThreadCount)
	}
	if c.Pool.MaxQueuedQueries < 0 {
		return fmt.Errorf("max queued queries must be non-negative, got %d", c.Pool.MaxQueuedQueries)
	}
	if c.Cache.QueryCacheSize < 0 {
		return fmt.Errorf("query cache size must be non-negative, got %d", c.Cache.QueryCacheSize)
	}
	return nil
}
