package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testConfig = `
backend:
  url: https://project.example.co/
  key: anon-key
  user-agent: gigboard-test
recommend:
  user-id: 6f1c2a3e-0000-4000-8000-000000000001
  limit: 3
  exclude-categories: [moving, cleaning]
  schedule: "@every 15m"
  weights:
    location: 2
    skills: 5
  ai:
    enabled: true
    minimum-fit-score: 0.6
    gemini:
      model: gemini-2.5-flash
      extra-criteria: only weekend jobs
presence:
  user-id: 6f1c2a3e-0000-4000-8000-000000000001
  path: /dashboard
  store: redis
  redis:
    url: redis://localhost:6379/0
  heartbeat-interval: 45s
  stale-after: 3m
  max-failures: 7
  report-interval: 20s
`

func TestGetConfig(t *testing.T) {
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(testConfig)))
	t.Cleanup(func() {
		_ = viper.ReadConfig(strings.NewReader("{}"))
	})

	config, err := getConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://project.example.co/", config.Backend.URL)
	assert.Equal(t, "gigboard-test", config.Backend.UserAgent)

	rc := config.Recommend
	assert.Equal(t, 3, rc.Limit)
	assert.Equal(t, []string{"moving", "cleaning"}, rc.ExcludeCategories)
	assert.Equal(t, "@every 15m", rc.Schedule)
	assert.Equal(t, 2.0, rc.Weights.Location)
	assert.Equal(t, 5.0, rc.Weights.Skills)
	require.NotNil(t, rc.AI)
	require.NotNil(t, rc.AI.Gemini)
	assert.True(t, rc.AI.Enabled)
	assert.Equal(t, "gemini-2.5-flash", rc.AI.Gemini.Model)
	assert.Equal(t, "only weekend jobs", rc.AI.Gemini.ExtraCriteria)

	pc := config.Presence
	assert.Equal(t, "/dashboard", pc.Path)
	assert.Equal(t, "redis", pc.Store)
	require.NotNil(t, pc.Redis)
	assert.Equal(t, "redis://localhost:6379/0", pc.Redis.URL)
	assert.Equal(t, 45*time.Second, pc.HeartbeatInterval)
	assert.Equal(t, 3*time.Minute, pc.StaleAfter)
	assert.Equal(t, 7, pc.MaxFailures)
	assert.Equal(t, 20*time.Second, pc.ReportInterval)
}

func TestNewBackend(t *testing.T) {
	t.Run("no url", func(t *testing.T) {
		api, err := newBackend(&BackendConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, api)
	})

	t.Run("key from file", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), "anon.key")
		require.NoError(t, os.WriteFile(keyFile, []byte("secret\n"), 0o600))

		api, err := newBackend(&BackendConfig{URL: "https://project.example.co/", KeyFile: keyFile, UserAgent: "ua"}, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, api)
		assert.Equal(t, "https://project.example.co", api.BaseURL)
		assert.Equal(t, "ua", api.UserAgent)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := newBackend(&BackendConfig{URL: "https://project.example.co"}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GIGBOARD_BACKEND_KEY_FILE")
	})
}

func TestNewPresenceStore(t *testing.T) {
	ctx := context.Background()

	_, _, err := newPresenceStore(ctx, &Config{Backend: &BackendConfig{}, Presence: &PresenceConfig{Store: "etcd"}}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown presence store")

	_, _, err = newPresenceStore(ctx, &Config{Backend: &BackendConfig{}, Presence: &PresenceConfig{}}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url is required")

	st, closeStore, err := newPresenceStore(ctx, &Config{
		Backend:  &BackendConfig{URL: "https://project.example.co", Key: "anon"},
		Presence: &PresenceConfig{Store: "REST"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, st)
	closeStore()
}
