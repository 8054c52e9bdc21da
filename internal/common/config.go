package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Source    SourceConfig
	Raster    RasterConfig
	Inference InferenceConfig
	Pipeline  PipelineConfig
}

// SourceConfig bounds document acquisition.
type SourceConfig struct {
	MaxDownloadBytes int64
	DownloadTimeout  time.Duration
}

// RasterConfig holds page rasterization configuration.
type RasterConfig struct {
	Pdftoppm string
	DPI      int
	MaxPages int
}

// InferenceConfig holds the inference-service client configuration.
// There are no package-level client handles; this struct is passed into
// constructed engines.
type InferenceConfig struct {
	Provider          string // "openai" | "gemini"
	APIKey            string
	BaseURL           string
	VisionModel       string
	TextModel         string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// PipelineConfig holds orchestration limits.
type PipelineConfig struct {
	MaxInFlight    int // bound on concurrent inference requests
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Source: SourceConfig{
			MaxDownloadBytes: int64(getEnvAsInt("MAX_DOWNLOAD_MB", 50)) * 1024 * 1024,
			DownloadTimeout:  getEnvAsDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
		},
		Raster: RasterConfig{
			Pdftoppm: getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:      getEnvAsInt("RASTER_DPI", 200),
			MaxPages: getEnvAsInt("RASTER_MAX_PAGES", 0),
		},
		Inference: InferenceConfig{
			Provider:          getEnv("INFERENCE_PROVIDER", "openai"),
			APIKey:            getEnv("INFERENCE_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL:           getEnv("INFERENCE_BASE_URL", "https://api.openai.com/v1"),
			VisionModel:       getEnv("INFERENCE_VISION_MODEL", "gpt-4o"),
			TextModel:         getEnv("INFERENCE_TEXT_MODEL", "gpt-4o-mini"),
			Temperature:       getEnvAsFloat32("INFERENCE_TEMPERATURE", 0.1),
			Timeout:           getEnvAsDuration("INFERENCE_TIMEOUT", 45*time.Second),
			RequestsPerSecond: getEnvAsFloat64("INFERENCE_RPS", 2.0),
			Burst:             getEnvAsInt("INFERENCE_BURST", 4),
		},
		Pipeline: PipelineConfig{
			MaxInFlight:    getEnvAsInt("PIPELINE_MAX_INFLIGHT", 4),
			ProcessTimeout: getEnvAsDuration("PIPELINE_TIMEOUT", 5*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
	if c.Inference.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "INFERENCE_API_KEY is required", ErrInvalidInput)
	}
	if c.Source.MaxDownloadBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_DOWNLOAD_MB must be positive", nil)
	}
	if c.Pipeline.MaxInFlight <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_MAX_INFLIGHT must be positive", nil)
	}
	return nil
}
