package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "stationflow.db", cfg.DatabaseURL)
	require.Equal(t, ":8088", cfg.HTTPAddr)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
	require.False(t, cfg.NATS.Enabled)
	require.True(t, cfg.NATS.Embedded)
	require.Equal(t, "STATIONFLOW_EVENTS", cfg.NATS.Stream)
}

func TestLoad_EnvOverridesAndLegacyAPIKeyNames(t *testing.T) {
	t.Setenv("STATIONFLOW_DATABASE_URL", "/tmp/custom.db")
	t.Setenv("STATIONFLOW_HTTP_ADDR", ":9090")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("STATIONFLOW_ANTHROPIC_API_KEY", "sk-ant-direct")
	t.Setenv("STATIONFLOW_NATS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", cfg.DatabaseURL)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, "sk-legacy", cfg.OpenAIAPIKey)
	require.Equal(t, "sk-ant-direct", cfg.AnthropicAPIKey)
	require.True(t, cfg.NATS.Enabled)
}
