package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"gocoex/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig   `validate:"required"`
	Viewer    ViewerConfig   `validate:"required"`
	Analysis  AnalysisConfig `validate:"required"`
	Paths     PathConfig
	Profiling ProfilingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	User    string
	Name    string
	Host    string
	Port    int
	SSLMode string
}

// Enabled reports whether run persistence is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds analysis API server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string
}

// ViewerConfig holds the results viewer server settings
type ViewerConfig struct {
	Port string `validate:"required"`
}

// AnalysisConfig holds engine defaults
type AnalysisConfig struct {
	Method          string
	Permutations    int
	Seed            int64
	Workers         int
	MaxConcurrent   int64
	WeightThreshold float64
	KernelFamily    string
	KernelParameter float64
	KernelCutoff    float64
}

// PathConfig holds file system paths
type PathConfig struct {
	WorkbookFile string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	config.Database = *loadDatabaseConfig()
	config.Server = *loadServerConfig()
	config.Viewer = *loadViewerConfig()
	config.Analysis = *loadAnalysisConfig()
	config.Paths = *loadPathConfig()
	config.Profiling = *loadProfilingConfig()

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		User:    getEnvOrDefault("DB_USER", ""),
		Name:    getEnvOrDefault("DB_NAME", ""),
		Host:    getEnvOrDefault("DB_HOST", ""),
		Port:    getEnvIntOrDefault("DB_PORT", 5432),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadViewerConfig() *ViewerConfig {
	return &ViewerConfig{
		Port: getEnvOrDefault("VIEWER_PORT", "8081"),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Method:          getEnvOrDefault("ANALYSIS_METHOD", "pearson"),
		Permutations:    getEnvIntOrDefault("ANALYSIS_PERMUTATIONS", 1000),
		Seed:            int64(getEnvIntOrDefault("ANALYSIS_SEED", 1337)),
		Workers:         getEnvIntOrDefault("ANALYSIS_WORKERS", runtime.GOMAXPROCS(0)),
		MaxConcurrent:   int64(getEnvIntOrDefault("ANALYSIS_MAX_CONCURRENT", 4)),
		WeightThreshold: getEnvFloatOrDefault("ANALYSIS_WEIGHT_THRESHOLD", 0),
		KernelFamily:    getEnvOrDefault("ANALYSIS_KERNEL", "gaussian"),
		KernelParameter: getEnvFloatOrDefault("ANALYSIS_KERNEL_PARAM", 100),
		KernelCutoff:    getEnvFloatOrDefault("ANALYSIS_KERNEL_CUTOFF", 0.1),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		WorkbookFile: getEnvOrDefault("WORKBOOK_FILE", ""),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.Configuration("server port is required")
	}
	if config.Analysis.Permutations <= 0 {
		return errors.Configuration("ANALYSIS_PERMUTATIONS must be positive")
	}
	if config.Analysis.Workers <= 0 {
		return errors.Configuration("ANALYSIS_WORKERS must be positive")
	}
	if config.Analysis.MaxConcurrent <= 0 {
		return errors.Configuration("ANALYSIS_MAX_CONCURRENT must be positive")
	}
	if config.Analysis.KernelParameter <= 0 {
		return errors.Configuration("ANALYSIS_KERNEL_PARAM must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Duration parsing helper (for future use)
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
