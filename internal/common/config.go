package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Agent AgentConfig
}

// AgentConfig holds extraction-agent configuration
type AgentConfig struct {
	MaxRetryAttempts int
	MaxPercent       float64
	Evaluate         bool
	RunTimeout       time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxRetryAttempts: getEnvAsInt("AGENT_MAX_RETRIES", 3),
			MaxPercent:       getEnvAsFloat64("AGENT_MAX_PERCENT", 100),
			Evaluate:         getEnvAsBool("AGENT_EVALUATE", false),
			RunTimeout:       getEnvAsDuration("AGENT_RUN_TIMEOUT", 2*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Agent.MaxRetryAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "AGENT_MAX_RETRIES must be >= 1", ErrInvalidInput)
	}
	if c.Agent.MaxPercent <= 0 {
		return NewAppError("CONFIG_ERROR", "AGENT_MAX_PERCENT must be positive", ErrInvalidInput)
	}
	return nil
}
