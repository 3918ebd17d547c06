package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "reclamaai.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1000), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 0.1, cfg.Anthropic.Temperature, 0.0001)
	assert.Equal(t, 3, cfg.Anthropic.RetryAttempts)
	assert.False(t, cfg.Routing.UseSearch)
	assert.Equal(t, []string{"atendimento", "n2"}, cfg.Routing.FallbackMarkers)
	assert.Equal(t, "data/mock", cfg.Data.MockPath)
	assert.True(t, cfg.Pipeline.Persist)
	assert.Equal(t, "SUPORTE", cfg.Jira.ProjectKey)
	assert.Equal(t, 1000, cfg.Jira.StartCounter)
	assert.Equal(t, "complaint-audit", cfg.Kafka.AuditTopic)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Monitor.Enabled)
	assert.Equal(t, 300, cfg.Monitor.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitor.LookbackWindowHours)
	assert.InDelta(t, 0.2, cfg.Monitor.FailureRateThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Monitor.CriticalThreshold)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/reclamaai
log:
  level: debug
  format: console
server:
  port: 9090
routing:
  use_search: true
kafka:
  brokers: ["localhost:9092"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/reclamaai", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Routing.UseSearch)
	assert.True(t, cfg.Kafka.Enabled())
	// Defaults still apply for unset values
	assert.Equal(t, "SUPORTE", cfg.Jira.ProjectKey)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RECLAMAAI_STORE_DRIVER", "none")
	t.Setenv("RECLAMAAI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RECLAMAAI_ANTHROPIC_KEY=sk-from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("RECLAMAAI_ANTHROPIC_KEY") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.Anthropic.Key)
}

func TestLoadEnvWithoutDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RECLAMAAI_ANTHROPIC_KEY", "sk-env")
	t.Setenv("RECLAMAAI_STORE_MAX_CONNS", "8")
	t.Setenv("RECLAMAAI_DATA_TEAMS_FILE", "/etc/reclamaai/teams.yaml")
	t.Setenv("RECLAMAAI_DATA_KEYWORDS_FILE", "/etc/reclamaai/keywords.yaml")
	t.Setenv("RECLAMAAI_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RECLAMAAI_MONITOR_ENABLED", "true")
	t.Setenv("RECLAMAAI_MONITOR_WEBHOOK_URL", "https://hooks.example.com/alerts")
	t.Setenv("RECLAMAAI_MONITOR_COST_THRESHOLD_USD", "2.5")
	t.Setenv("RECLAMAAI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.Anthropic.Key)
	assert.Equal(t, int32(8), cfg.Store.MaxConns)
	assert.Equal(t, "/etc/reclamaai/teams.yaml", cfg.Data.TeamsFile)
	assert.Equal(t, "/etc/reclamaai/keywords.yaml", cfg.Data.KeywordsFile)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, "https://hooks.example.com/alerts", cfg.Monitor.WebhookURL)
	assert.InDelta(t, 2.5, cfg.Monitor.CostThresholdUSD, 1e-9)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvPricingForConfiguredModel(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RECLAMAAI_PRICING_ANTHROPIC_CLAUDE_HAIKU_4_5_20251001_INPUT", "1.5")

	cfg, err := Load()
	require.NoError(t, err)

	require.Contains(t, cfg.Pricing.Anthropic, "claude-haiku-4-5-20251001")
	assert.InDelta(t, 1.5, cfg.Pricing.Anthropic["claude-haiku-4-5-20251001"].Input, 1e-9)
	assert.Len(t, cfg.Pricing.Anthropic, 1)
}

func TestLoadEnvUnsetLeavesZeroValues(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Pricing.Anthropic)
	assert.Empty(t, cfg.Monitor.WebhookURL)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Store:     StoreConfig{Driver: "sqlite"},
		Anthropic: AnthropicConfig{Key: "k", Model: "m"},
		Server:    ServerConfig{Port: 8000},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		mode    string
		wantErr string
	}{
		{"pipeline ok", func(*Config) {}, ModePipeline, ""},
		{"serve ok", func(*Config) {}, ModeServe, ""},
		{"missing key", func(c *Config) { c.Anthropic.Key = "" }, ModePipeline, "anthropic.key"},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, ModePipeline, "store.database_url"},
		{"bad driver", func(c *Config) { c.Store.Driver = "mysql" }, ModePipeline, "unsupported store driver"},
		{"serve without port", func(c *Config) { c.Server.Port = 0 }, ModeServe, "server.port"},
		{"offline needs no key", func(c *Config) { c.Anthropic.Key = "" }, ModeOffline, ""},
		{"offline still checks store", func(c *Config) { c.Store.Driver = "mysql" }, ModeOffline, "unsupported store driver"},
		{"readonly needs no key", func(c *Config) { c.Anthropic.Key = "" }, ModeReadOnly, ""},
		{"readonly needs store", func(c *Config) { c.Store.Driver = "none" }, ModeReadOnly, "driver is none"},
		{"unknown mode", func(*Config) {}, "other", "unknown validation mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid
			tt.mutate(&c)
			err := c.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
