package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  http_port: \":9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPPort)
	assert.Equal(t, "uploads", cfg.Storage.UploadsDir)
	assert.Equal(t, "processed", cfg.Storage.ProcessedDir)
	assert.Equal(t, "task_statuses", cfg.Storage.StatusesDir)
	assert.Equal(t, 30*time.Second, cfg.Retention.Interval)
	assert.Equal(t, time.Hour, cfg.Retention.UploadsTTL)
	assert.Equal(t, 5*time.Minute, cfg.Retention.ProcessedTTL)
	assert.Equal(t, 5*time.Minute, cfg.Retention.StatusesTTL)
	assert.Equal(t, "file", cfg.StatusStore.Backend)
	assert.Equal(t, 0, cfg.Runner.MaxConcurrent)

	assert.InDelta(t, 1.02, cfg.Video.Contrast, 1e-9)
	assert.InDelta(t, 1.02, cfg.Video.Saturation, 1e-9)
	assert.InDelta(t, 0.4, cfg.Video.GammaWeight, 1e-9)
	assert.InDelta(t, 0.07, cfg.Video.EQ, 1e-9)
	assert.Equal(t, 24, cfg.Video.FPS)
	assert.False(t, cfg.Video.RandomConfig)
}

func TestLoad_ClampsOutOfRangeOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
option_video:
  contrast: 2.0
  saturation: 0.1
  gamma_r: 5
  fps: 120
  rotate: -45
  random_config: true
option_image:
  blur: 3
`))
	require.NoError(t, err)

	assert.InDelta(t, 1.05, cfg.Video.Contrast, 1e-9)
	assert.InDelta(t, 0.95, cfg.Video.Saturation, 1e-9)
	assert.InDelta(t, 1.1, cfg.Video.GammaR, 1e-9)
	assert.Equal(t, 30, cfg.Video.FPS)
	assert.Equal(t, -2, cfg.Video.Rotate)
	assert.True(t, cfg.Video.RandomConfig)
	assert.InDelta(t, 0.5, cfg.Image.Blur, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := Database{Host: "db", Port: "5432", User: "u", Pass: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", d.DSN())
}

func TestRangeClamp(t *testing.T) {
	r := Range{Min: 0.95, Max: 1.05}

	assert.InDelta(t, 1.05, r.Clamp(2.0), 1e-9)
	assert.InDelta(t, 0.95, r.Clamp(-1), 1e-9)
	assert.InDelta(t, 1.0, r.Clamp(1.0), 1e-9)
}
