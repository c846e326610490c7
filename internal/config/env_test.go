package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PAGE_WIDTH", "PAGE_HEIGHT", "PAGE_UNIT", "OUTPUT_DPI", "CAPTURE_SCALE", "REDIS_URL", "PORT", "FILENAME_SUFFIX", "CAPTURE_CONCURRENCY"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, 210.0, cfg.Export.PageWidth)
	assert.Equal(t, 297.0, cfg.Export.PageHeight)
	assert.Equal(t, "mm", cfg.Export.PageUnit)
	assert.Zero(t, cfg.Export.OutputDPI)
	assert.Equal(t, "_CV", cfg.Export.FilenameSuffix)
	assert.Equal(t, 2.0, cfg.Capture.Scale)
	assert.Equal(t, "body", cfg.Capture.Selector)
	assert.Equal(t, 4, cfg.Capture.Concurrency)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.Export.Timeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PAGE_WIDTH", "8.5")
	t.Setenv("PAGE_HEIGHT", "11")
	t.Setenv("PAGE_UNIT", "in")
	t.Setenv("OUTPUT_DPI", "300")
	t.Setenv("EXPORT_TIMEOUT", "5s")
	t.Setenv("CHROME_NO_SANDBOX", "yes")
	t.Setenv("JPEG_QUALITY", "not-a-number")
	t.Setenv("CAPTURE_CONCURRENCY", "2")

	cfg := FromEnv()
	assert.Equal(t, 8.5, cfg.Export.PageWidth)
	assert.Equal(t, 11.0, cfg.Export.PageHeight)
	assert.Equal(t, "in", cfg.Export.PageUnit)
	assert.Equal(t, 300.0, cfg.Export.OutputDPI)
	assert.Equal(t, 5*time.Second, cfg.Export.Timeout)
	assert.True(t, cfg.Capture.NoSandbox)
	assert.Equal(t, 90, cfg.Export.JPEGQuality)
	assert.Equal(t, 2, cfg.Capture.Concurrency)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FILENAME_SUFFIX=_resume\n"), 0o644))
	t.Setenv("FILENAME_SUFFIX", "")
	require.NoError(t, os.Unsetenv("FILENAME_SUFFIX"))

	cfg := Load(path)
	assert.Equal(t, "_resume", cfg.Export.FilenameSuffix)
}

func TestParseHelpers(t *testing.T) {
	assert.True(t, parseBool(" ON "))
	assert.False(t, parseBool("nope"))
	assert.Equal(t, 3, parseInt("3", 1))
	assert.Equal(t, 1, parseInt("x", 1))
	assert.Equal(t, 1.5, parseFloat("1.5", 0))
	assert.Equal(t, time.Second, parseDuration("bad", time.Second))
}

func TestExportBoundsKeepLockPastTimeout(t *testing.T) {
	tests := []struct {
		name                 string
		timeout, ttl         time.Duration
		wantTimeout, wantTTL time.Duration
	}{
		{"defaults", 60 * time.Second, 2 * time.Minute, 60 * time.Second, 2 * time.Minute},
		{"zero timeout is bounded", 0, 2 * time.Minute, 60 * time.Second, 2 * time.Minute},
		{"ttl shorter than timeout", 5 * time.Minute, 2 * time.Minute, 5 * time.Minute, 5*time.Minute + lockMargin},
		{"ttl inside margin", 60 * time.Second, 70 * time.Second, 60 * time.Second, 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout, ttl := exportBounds(tt.timeout, tt.ttl)
			assert.Equal(t, tt.wantTimeout, timeout)
			assert.Equal(t, tt.wantTTL, ttl)
		})
	}
}

func TestFromEnvClampsLockTTL(t *testing.T) {
	t.Setenv("EXPORT_TIMEOUT", "0s")
	t.Setenv("LOCK_TTL", "10s")

	cfg := FromEnv()
	assert.Equal(t, 60*time.Second, cfg.Export.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Export.LockTTL)
}
