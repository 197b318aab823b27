package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvInt(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "25")
	assert.Equal(t, 25, getEnvInt("LOW_STOCK_THRESHOLD", 10))

	t.Setenv("LOW_STOCK_THRESHOLD", "abc")
	assert.Equal(t, 10, getEnvInt("LOW_STOCK_THRESHOLD", 10))

	t.Setenv("LOW_STOCK_THRESHOLD", "-1")
	assert.Equal(t, 10, getEnvInt("LOW_STOCK_THRESHOLD", 10))
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MAX_UPLOAD_MB", "2")
	t.Setenv("TIMEZONE", "UTC")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 270, cfg.ReportExpiryDays)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 30, cfg.ExpiryWarningDays)
	assert.NotNil(t, cfg.Location)
}
