package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Routing   RoutingConfig   `yaml:"routing" mapstructure:"routing"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Jira      JiraConfig      `yaml:"jira" mapstructure:"jira"`
	Email     EmailConfig     `yaml:"email" mapstructure:"email"`
	Kafka     KafkaConfig     `yaml:"kafka" mapstructure:"kafka"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for complaint classification.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	RetryAttempts     int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs  int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing.
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// RoutingConfig controls how complaints are assigned to teams.
type RoutingConfig struct {
	UseSearch       bool     `yaml:"use_search" mapstructure:"use_search"`
	FallbackMarkers []string `yaml:"fallback_markers" mapstructure:"fallback_markers"`
}

// DataConfig points at the mock source files and the registry fixtures.
type DataConfig struct {
	MockPath     string `yaml:"mock_path" mapstructure:"mock_path"`
	TeamsFile    string `yaml:"teams_file" mapstructure:"teams_file"`
	KeywordsFile string `yaml:"keywords_file" mapstructure:"keywords_file"`
}

// PipelineConfig configures workflow behavior.
type PipelineConfig struct {
	Persist      bool `yaml:"persist" mapstructure:"persist"`
	DefaultLimit int  `yaml:"default_limit" mapstructure:"default_limit"`
}

// JiraConfig configures the ticket simulator.
type JiraConfig struct {
	ProjectKey   string `yaml:"project_key" mapstructure:"project_key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	StartCounter int    `yaml:"start_counter" mapstructure:"start_counter"`
}

// EmailConfig configures the notification simulator.
type EmailConfig struct {
	CompanyName string `yaml:"company_name" mapstructure:"company_name"`
	From        string `yaml:"from" mapstructure:"from"`
}

// KafkaConfig configures the optional audit event stream.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers" mapstructure:"brokers"`
	AuditTopic string   `yaml:"audit_topic" mapstructure:"audit_topic"`
}

// Enabled reports whether audit events should be published to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.AuditTopic != ""
}

// ServerConfig configures the REST API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitorConfig configures the background health checks run by serve.
type MonitorConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	CriticalThreshold    int     `yaml:"critical_threshold" mapstructure:"critical_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml, and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECLAMAAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees env values for keys viper already knows, so keys
	// without a default are bound explicitly.
	if err := bindEnv(v, unsetKeys...); err != nil {
		return nil, err
	}

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "reclamaai.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.requests_per_second", 2.0)
	v.SetDefault("anthropic.retry_attempts", 3)
	v.SetDefault("anthropic.initial_backoff_ms", 500)
	v.SetDefault("anthropic.breaker_threshold", 5)
	v.SetDefault("anthropic.breaker_reset_secs", 30)
	v.SetDefault("routing.use_search", false)
	v.SetDefault("routing.fallback_markers", []string{"atendimento", "n2"})
	v.SetDefault("data.mock_path", "data/mock")
	v.SetDefault("pipeline.persist", true)
	v.SetDefault("pipeline.default_limit", 10)
	v.SetDefault("jira.project_key", "SUPORTE")
	v.SetDefault("jira.base_url", "https://jira.technova.com")
	v.SetDefault("jira.start_counter", 1000)
	v.SetDefault("email.company_name", "TechNova")
	v.SetDefault("email.from", "sac@technova.com")
	v.SetDefault("kafka.audit_topic", "complaint-audit")
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.lookback_window_hours", 24)
	v.SetDefault("monitor.failure_rate_threshold", 0.2)
	v.SetDefault("monitor.critical_threshold", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	// Pricing is keyed by model id, so only the configured model's rates
	// can be overridden from the environment.
	if model := v.GetString("anthropic.model"); model != "" {
		prefix := "pricing.anthropic." + model + "."
		if err := bindEnv(v,
			prefix+"input", prefix+"output", prefix+"cache_write_mul", prefix+"cache_read_mul",
		); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// unsetKeys are the settings with no default value.
var unsetKeys = []string{
	"anthropic.key",
	"store.max_conns",
	"store.min_conns",
	"data.teams_file",
	"data.keywords_file",
	"kafka.brokers",
	"monitor.enabled",
	"monitor.webhook_url",
	"monitor.cost_threshold_usd",
}

func bindEnv(v *viper.Viper, keys ...string) error {
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return eris.Wrapf(err, "config: bind env %s", k)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
