// Package config loads an EngineConfig from an optional config file and
// STATIONFLOW_*/STN_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// EngineConfig holds everything cmd/stationflow needs to wire an Engine,
// its stores, and its HTTP surface.
type EngineConfig struct {
	DatabaseURL    string
	HTTPAddr       string
	HTTPTimeout    time.Duration
	DefaultModel   string
	OpenAIAPIKey   string
	AnthropicAPIKey string
	VectorDir      string

	NATS struct {
		Enabled       bool
		Embedded      bool
		URL           string
		Stream        string
		SubjectPrefix string
	}

	Telemetry struct {
		Enabled bool
	}

	WorkflowDir string // optional directory of authoring graphs to sync on startup
}

// Load reads cfgFile (if non-empty) plus environment variables into an
// EngineConfig. Environment variables always win over the file.
func Load(cfgFile string) (*EngineConfig, error) {
	v := viper.New()

	v.SetDefault("database_url", "stationflow.db")
	v.SetDefault("http_addr", ":8088")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("default_model", "gpt-4o-mini")
	v.SetDefault("vector_dir", "./data/vectors")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.embedded", true)
	v.SetDefault("nats.stream", "STATIONFLOW_EVENTS")
	v.SetDefault("nats.subject_prefix", "stationflow")
	v.SetDefault("telemetry.enabled", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if cwd, err := os.Getwd(); err == nil {
			if _, err := os.Stat(filepath.Join(cwd, "stationflow.yaml")); err == nil {
				v.AddConfigPath(cwd)
			}
		}
		v.SetConfigName("stationflow")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	cfg := &EngineConfig{
		DatabaseURL:     v.GetString("database_url"),
		HTTPAddr:        v.GetString("http_addr"),
		HTTPTimeout:     time.Duration(v.GetInt("http_timeout_seconds")) * time.Second,
		DefaultModel:    v.GetString("default_model"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		VectorDir:       v.GetString("vector_dir"),
		WorkflowDir:     v.GetString("workflow_dir"),
	}
	cfg.NATS.Enabled = v.GetBool("nats.enabled")
	cfg.NATS.Embedded = v.GetBool("nats.embedded")
	cfg.NATS.URL = v.GetString("nats.url")
	cfg.NATS.Stream = v.GetString("nats.stream")
	cfg.NATS.SubjectPrefix = v.GetString("nats.subject_prefix")
	cfg.Telemetry.Enabled = v.GetBool("telemetry.enabled")

	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database_url", "STATIONFLOW_DATABASE_URL", "STN_DATABASE_URL")
	_ = v.BindEnv("http_addr", "STATIONFLOW_HTTP_ADDR", "STN_HTTP_ADDR")
	_ = v.BindEnv("http_timeout_seconds", "STATIONFLOW_HTTP_TIMEOUT_SECONDS")
	_ = v.BindEnv("default_model", "STATIONFLOW_DEFAULT_MODEL", "STN_DEFAULT_MODEL")
	_ = v.BindEnv("openai_api_key", "STATIONFLOW_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "STATIONFLOW_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("vector_dir", "STATIONFLOW_VECTOR_DIR")
	_ = v.BindEnv("workflow_dir", "STATIONFLOW_WORKFLOW_DIR")
	_ = v.BindEnv("nats.enabled", "STATIONFLOW_NATS_ENABLED")
	_ = v.BindEnv("nats.embedded", "STATIONFLOW_NATS_EMBEDDED")
	_ = v.BindEnv("nats.url", "STATIONFLOW_NATS_URL")
	_ = v.BindEnv("nats.stream", "STATIONFLOW_NATS_STREAM")
	_ = v.BindEnv("nats.subject_prefix", "STATIONFLOW_NATS_SUBJECT_PREFIX")
	_ = v.BindEnv("telemetry.enabled", "STATIONFLOW_TELEMETRY_ENABLED")
}
