package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.Empty(t, cfg.SnapshotPath, "persistence is opt-in")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DGC_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("DGC_SNAPSHOT_PATH", "/tmp/snap.db")
	t.Setenv("DGC_SNAPSHOT_TTL", "2h")
	t.Setenv("DGC_RATE_LIMIT_RPS", "5")
	t.Setenv("DGC_RATE_LIMIT_BURST", "10")
	t.Setenv("DGC_DEFAULT_ENDPOINT", "minio.local:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	assert.Equal(t, "/tmp/snap.db", cfg.SnapshotPath)
	assert.Equal(t, 2*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, "minio.local:9000", cfg.DefaultEndpoint)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("DGC_SNAPSHOT_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNegativeRate(t *testing.T) {
	t.Setenv("DGC_RATE_LIMIT_RPS", "-3")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateNegativeTTL(t *testing.T) {
	cfg := Config{SnapshotTTL: -time.Minute}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())
}
