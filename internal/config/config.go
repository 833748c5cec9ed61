package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/perfcore/perfcore/pkg/errors"
)

// Optimization levels scale the control-loop thresholds.
const (
	LevelConservative = "conservative"
	LevelBalanced     = "balanced"
	LevelAggressive   = "aggressive"
)

// Recognized cache strategies.
const (
	StrategyLRU  = "lru"
	StrategyLFU  = "lfu"
	StrategyTTL  = "ttl"
	StrategyFIFO = "fifo"
)

// Configuration represents the complete subsystem configuration
type Configuration struct {
	Features   FeatureConfig    `yaml:"features"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Thresholds ThresholdConfig  `yaml:"thresholds"`
	Preload    PreloadConfig    `yaml:"preload"`
	Global     GlobalConfig     `yaml:"global"`
}

// FeatureConfig holds the feature flags that select real or no-op services
type FeatureConfig struct {
	Caching               bool   `yaml:"caching"`
	LazyLoading           bool   `yaml:"lazy_loading"`
	PerformanceMonitoring bool   `yaml:"performance_monitoring"`
	DOMOptimization       bool   `yaml:"dom_optimization"`
	OptimizationLevel     string `yaml:"optimization_level"`
}

// CacheConfig represents cache construction settings
type CacheConfig struct {
	Strategy        string        `yaml:"strategy"`
	Capacity        int           `yaml:"capacity"`
	MaxBytes        string        `yaml:"max_bytes"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// MonitoringConfig represents metrics registry settings
type MonitoringConfig struct {
	MaxSamples    int           `yaml:"max_samples"`
	SlowOperation time.Duration `yaml:"slow_operation"`
	ExportEnabled bool          `yaml:"export_enabled"`
	MetricsPort   int           `yaml:"metrics_port"`
}

// ThresholdConfig carries the raw control-loop thresholds before level
// scaling. Byte values are human-readable sizes ("50MB").
type ThresholdConfig struct {
	MemoryCritical string        `yaml:"memory_critical"`
	MemoryHigh     string        `yaml:"memory_high"`
	SlowResponse   time.Duration `yaml:"slow_response"`
	DOMOperation   time.Duration `yaml:"dom_operation"`
}

// PreloadConfig represents the persistent warm store used for preloading
type PreloadConfig struct {
	StorePath string `yaml:"store_path"`
	WarmKeys  int    `yaml:"warm_keys"`
}

// GlobalConfig represents global settings
type GlobalConfig struct {
	LogLevel             string        `yaml:"log_level"`
	AutoOptimizeInterval time.Duration `yaml:"auto_optimize_interval"`
}

// Thresholds are the level-scaled values the optimizer actually compares
// against.
type Thresholds struct {
	MemoryCriticalBytes int64
	MemoryHighBytes     int64
	SlowResponse        time.Duration
	DOMOperation        time.Duration
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Features: FeatureConfig{
			Caching:               true,
			LazyLoading:           true,
			PerformanceMonitoring: true,
			DOMOptimization:       false,
			OptimizationLevel:     LevelBalanced,
		},
		Cache: CacheConfig{
			Strategy:        StrategyLRU,
			Capacity:        1000,
			MaxBytes:        "64MB",
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Monitoring: MonitoringConfig{
			MaxSamples:    1024,
			SlowOperation: 2 * time.Second,
			ExportEnabled: false,
			MetricsPort:   9090,
		},
		Thresholds: ThresholdConfig{
			MemoryCritical: "100MB",
			MemoryHigh:     "50MB",
			SlowResponse:   2 * time.Second,
			DOMOperation:   100 * time.Millisecond,
		},
		Preload: PreloadConfig{
			StorePath: "",
			WarmKeys:  32,
		},
		Global: GlobalConfig{
			LogLevel:             "INFO",
			AutoOptimizeInterval: 0,
		},
	}
}

// Development returns a preset tuned for local development: verbose logging,
// low thresholds, short TTLs, metrics export on.
func Development() *Configuration {
	c := NewDefault()
	c.Features.OptimizationLevel = LevelAggressive
	c.Cache.DefaultTTL = 30 * time.Second
	c.Cache.CleanupInterval = 10 * time.Second
	c.Monitoring.ExportEnabled = true
	c.Thresholds.MemoryCritical = "32MB"
	c.Thresholds.MemoryHigh = "16MB"
	c.Thresholds.SlowResponse = 500 * time.Millisecond
	c.Global.LogLevel = "DEBUG"
	c.Global.AutoOptimizeInterval = 15 * time.Second
	return c
}

// Production returns a preset with conservative thresholds and long TTLs.
func Production() *Configuration {
	c := NewDefault()
	c.Features.OptimizationLevel = LevelConservative
	c.Cache.DefaultTTL = time.Hour
	c.Cache.CleanupInterval = 5 * time.Minute
	c.Global.LogLevel = "WARN"
	c.Global.AutoOptimizeInterval = time.Minute
	return c
}

// Testing returns a preset with all features enabled but fully deterministic
// behavior: no cleanup sweeps, no background control loop, no export server.
func Testing() *Configuration {
	c := NewDefault()
	c.Features.DOMOptimization = true
	c.Cache.CleanupInterval = 0
	c.Monitoring.ExportEnabled = false
	c.Global.AutoOptimizeInterval = 0
	return c
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.NewError(errors.ErrCodeConfigLoad, "failed to read config file").
			WithDetail("path", filename).WithCause(err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewError(errors.ErrCodeConfigLoad, "failed to parse config file").
			WithDetail("path", filename).WithCause(err)
	}

	return nil
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("PERFCORE_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("PERFCORE_CACHE_STRATEGY"); val != "" {
		c.Cache.Strategy = val
	}
	if val := os.Getenv("PERFCORE_CACHE_CAPACITY"); val != "" {
		if capacity, err := strconv.Atoi(val); err == nil {
			c.Cache.Capacity = capacity
		}
	}
	if val := os.Getenv("PERFCORE_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.Cache.DefaultTTL = duration
		}
	}
	if val := os.Getenv("PERFCORE_OPTIMIZATION_LEVEL"); val != "" {
		c.Features.OptimizationLevel = val
	}
	if val := os.Getenv("PERFCORE_CACHING"); val != "" {
		c.Features.Caching = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("PERFCORE_MONITORING"); val != "" {
		c.Features.PerformanceMonitoring = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("PERFCORE_WARM_STORE"); val != "" {
		c.Preload.StorePath = val
	}

	return nil
}

// Validate validates the configuration. A misconfigured optimizer is unsafe
// to run silently, so this is the one place the subsystem fails hard.
func (c *Configuration) Validate() error {
	switch c.Cache.Strategy {
	case StrategyLRU, StrategyLFU, StrategyTTL, StrategyFIFO:
	default:
		return errors.NewError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown cache strategy %q (must be one of: lru, lfu, ttl, fifo)", c.Cache.Strategy)).
			WithComponent("config")
	}

	switch c.Features.OptimizationLevel {
	case LevelConservative, LevelBalanced, LevelAggressive:
	default:
		return errors.NewError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown optimization level %q (must be one of: conservative, balanced, aggressive)", c.Features.OptimizationLevel)).
			WithComponent("config")
	}

	if c.Cache.Capacity < 0 {
		return errors.NewError(errors.ErrCodeConfigValidation, "cache capacity cannot be negative").
			WithComponent("config").WithDetail("capacity", c.Cache.Capacity)
	}

	if c.Cache.MaxBytes != "" {
		if _, err := ParseSize(c.Cache.MaxBytes); err != nil {
			return errors.NewError(errors.ErrCodeConfigValidation, "invalid cache max_bytes").
				WithComponent("config").WithCause(err)
		}
	}

	if c.Monitoring.MaxSamples <= 0 {
		return errors.NewError(errors.ErrCodeConfigValidation, "monitoring max_samples must be greater than 0").
			WithComponent("config").WithDetail("max_samples", c.Monitoring.MaxSamples)
	}

	if _, err := c.ScaledThresholds(); err != nil {
		return err
	}

	validLogLevels := []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.ToUpper(c.Global.LogLevel) == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return errors.NewError(errors.ErrCodeConfigValidation,
			fmt.Sprintf("invalid log_level: %s (must be one of: %s)",
				c.Global.LogLevel, strings.Join(validLogLevels, ", "))).
			WithComponent("config")
	}

	return nil
}

// LevelScale returns the threshold multiplier for the configured
// optimization level. Aggressive lowers thresholds so actions trigger
// sooner; conservative raises them.
func (c *Configuration) LevelScale() float64 {
	switch c.Features.OptimizationLevel {
	case LevelConservative:
		return 1.5
	case LevelAggressive:
		return 0.5
	default:
		return 1.0
	}
}

// ScaledThresholds parses and scales the configured thresholds by the
// optimization level.
func (c *Configuration) ScaledThresholds() (Thresholds, error) {
	critical, err := ParseSize(c.Thresholds.MemoryCritical)
	if err != nil {
		return Thresholds{}, errors.NewError(errors.ErrCodeConfigValidation, "invalid memory_critical threshold").
			WithComponent("config").WithCause(err)
	}
	high, err := ParseSize(c.Thresholds.MemoryHigh)
	if err != nil {
		return Thresholds{}, errors.NewError(errors.ErrCodeConfigValidation, "invalid memory_high threshold").
			WithComponent("config").WithCause(err)
	}

	scale := c.LevelScale()
	return Thresholds{
		MemoryCriticalBytes: int64(float64(critical) * scale),
		MemoryHighBytes:     int64(float64(high) * scale),
		SlowResponse:        time.Duration(float64(c.Thresholds.SlowResponse) * scale),
		DOMOperation:        time.Duration(float64(c.Thresholds.DOMOperation) * scale),
	}, nil
}

// ParseSize parses a human-readable size string like "64MB" into bytes
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multipliers := []struct {
		suffix string
		factor int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			numStr := strings.TrimSuffix(s, m.suffix)
			num, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size %q: %w", s, err)
			}
			if num < 0 {
				return 0, fmt.Errorf("size cannot be negative: %q", s)
			}
			return int64(num * float64(m.factor)), nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %q", s)
	}
	return num, nil
}
