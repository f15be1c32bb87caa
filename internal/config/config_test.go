package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}, cfg.Realtime.ReconnectDelays)
	assert.Equal(t, 10*time.Second, cfg.Realtime.HandshakeTimeout)
	assert.Equal(t, 30*time.Second, cfg.Realtime.LivenessTimeout)
	assert.Equal(t, 10*time.Second, cfg.Realtime.HeartbeatInterval)
	assert.Equal(t, 100, cfg.Notifications.Capacity)
	assert.Equal(t, 8*time.Hour, cfg.JWT.TTL)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("NOTIFICATIONS_CAPACITY", "25")
	t.Setenv("LOGGER_DISABLE_CALLER", "true")
	t.Setenv("REALTIME_RECONNECT_DELAYS", "0s, 1s ,5s")
	t.Setenv("TOAST_TTL", "3s")

	cfg := LoadEnv()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Notifications.Capacity)
	assert.True(t, cfg.Logger.DisableCaller)
	assert.Equal(t, []time.Duration{0, time.Second, 5 * time.Second}, cfg.Realtime.ReconnectDelays)
	assert.Equal(t, 3*time.Second, cfg.Notifications.ToastTTL)
}

func TestLoadEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("NOTIFICATIONS_CAPACITY", "many")
	t.Setenv("LOGGER_DISABLE_STACKTRACE", "sometimes")
	t.Setenv("REALTIME_RECONNECT_DELAYS", "1s,soon")
	t.Setenv("JWT_TTL", "forever")

	cfg := LoadEnv()

	assert.Equal(t, 100, cfg.Notifications.Capacity)
	assert.True(t, cfg.Logger.DisableStacktrace)
	assert.Len(t, cfg.Realtime.ReconnectDelays, 4)
	assert.Equal(t, 8*time.Hour, cfg.JWT.TTL)
}

func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: postgres
kafka:
  events_topic: custom.events
realtime:
  reconnect_delays: [0s, 1s]
`), 0o600))

	cfg := LoadEnv()
	require.NoError(t, LoadFile(path, cfg))

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "custom.events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "grocery.commands", cfg.Kafka.CommandsTopic, "untouched keys keep env values")
	assert.Equal(t, []time.Duration{0, time.Second}, cfg.Realtime.ReconnectDelays)
}

func TestLoadFile_MissingAndInvalid(t *testing.T) {
	cfg := LoadEnv()
	assert.NoError(t, LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), cfg))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o600))
	assert.Error(t, LoadFile(path, cfg))
}
