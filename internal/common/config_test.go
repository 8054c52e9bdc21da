package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := LoadConfig()

	assert.Equal(t, int64(50)*1024*1024, cfg.Source.MaxDownloadBytes)
	assert.Equal(t, 30*time.Second, cfg.Source.DownloadTimeout)
	assert.Equal(t, "pdftoppm", cfg.Raster.Pdftoppm)
	assert.Equal(t, 200, cfg.Raster.DPI)
	assert.Equal(t, "openai", cfg.Inference.Provider)
	assert.Equal(t, "gpt-4o", cfg.Inference.VisionModel)
	assert.Equal(t, float32(0.1), cfg.Inference.Temperature)
	assert.Equal(t, 2.0, cfg.Inference.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Pipeline.MaxInFlight)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.ProcessTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MAX_DOWNLOAD_MB", "10")
	t.Setenv("RASTER_DPI", "300")
	t.Setenv("INFERENCE_PROVIDER", "gemini")
	t.Setenv("INFERENCE_API_KEY", "test-key")
	t.Setenv("INFERENCE_TIMEOUT", "90s")
	t.Setenv("PIPELINE_MAX_INFLIGHT", "8")

	cfg := LoadConfig()

	assert.Equal(t, int64(10)*1024*1024, cfg.Source.MaxDownloadBytes)
	assert.Equal(t, 300, cfg.Raster.DPI)
	assert.Equal(t, "gemini", cfg.Inference.Provider)
	assert.Equal(t, "test-key", cfg.Inference.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 8, cfg.Pipeline.MaxInFlight)
}

func TestLoadConfigFallsBackToOpenAIKey(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "legacy-key")

	cfg := LoadConfig()

	assert.Equal(t, "legacy-key", cfg.Inference.APIKey)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RASTER_DPI", "very high")
	t.Setenv("INFERENCE_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 200, cfg.Raster.DPI)
	assert.Equal(t, 45*time.Second, cfg.Inference.Timeout)
}

func TestValidateRequiresAPIKey(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidateOK(t *testing.T) {
	t.Setenv("INFERENCE_API_KEY", "k")

	assert.NoError(t, LoadConfig().Validate())
}

func TestStageErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := NewStageError("rasterize", cause)

	assert.Equal(t, "stage rasterize: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	var se *StageError
	require.ErrorAs(t, error(err), &se)
	assert.Equal(t, "rasterize", se.Stage)
}
