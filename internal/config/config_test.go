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
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
storage:
  type: minio
jwt:
  secret: short
  expire_hours: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "paystack", cfg.Payment.Gateway)
	assert.Equal(t, 10*time.Minute, cfg.OTPExpiry())
	assert.Equal(t, DefaultStreakMilestones, cfg.Loyalty.StreakMilestones)
	assert.False(t, cfg.Scheduler.ExpirySweepEnabled)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: minio
`)
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_env")
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk_test_env", cfg.Payment.PaystackSecretKey)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
storage:
  type: minio
jwt:
  secret: too-short
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownGateway(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: minio
payment:
  gateway: cash
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
