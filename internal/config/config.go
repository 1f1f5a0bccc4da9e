// Package config loads application configuration from config.yaml and
// JOBINTEL_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Logo      LogoConfig      `yaml:"logo" mapstructure:"logo"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	ScrapeAPI ScrapeAPIConfig `yaml:"scrape_api" mapstructure:"scrape_api"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CacheConfig configures the shared cache used by the logo resolver.
type CacheConfig struct {
	Backend    string        `yaml:"backend" mapstructure:"backend"` // "memory" or "redis"
	RedisAddr  string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RegistryConfig tunes source health bookkeeping.
type RegistryConfig struct {
	FailingThreshold int     `yaml:"failing_threshold" mapstructure:"failing_threshold"`
	ReliabilityAlpha float64 `yaml:"reliability_alpha" mapstructure:"reliability_alpha"`
}

// IngestConfig tunes the ingestion engine.
type IngestConfig struct {
	DefaultLimit int           `yaml:"default_limit" mapstructure:"default_limit"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

// VerifyConfig tunes the verification engine.
type VerifyConfig struct {
	StalenessWindow   time.Duration `yaml:"staleness_window" mapstructure:"staleness_window"`
	ExpireAfterChecks int           `yaml:"expire_after_checks" mapstructure:"expire_after_checks"`
	DefaultLimit      int           `yaml:"default_limit" mapstructure:"default_limit"`
	CheckTimeout      time.Duration `yaml:"check_timeout" mapstructure:"check_timeout"`
}

// EnrichConfig tunes the AI enrichment engine.
type EnrichConfig struct {
	DefaultLimit      int           `yaml:"default_limit" mapstructure:"default_limit"`
	MaxDescriptionLen int           `yaml:"max_description_len" mapstructure:"max_description_len"`
	InterCallDelay    time.Duration `yaml:"inter_call_delay" mapstructure:"inter_call_delay"`
	MaxSampledErrors  int           `yaml:"max_sampled_errors" mapstructure:"max_sampled_errors"`
}

// LogoConfig tunes the logo resolver.
type LogoConfig struct {
	InterItemDelay time.Duration `yaml:"inter_item_delay" mapstructure:"inter_item_delay"`
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrent  int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CheckTimeout   time.Duration `yaml:"check_timeout" mapstructure:"check_timeout"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ScrapeAPIConfig holds the external scraping/search service settings.
type ScrapeAPIConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `yaml:"port" mapstructure:"port"`
	CronSecret string `yaml:"cron_secret" mapstructure:"cron_secret"`
}

// SchedulerConfig holds in-process cron specs for serve --cron.
type SchedulerConfig struct {
	IngestSpec   string `yaml:"ingest_spec" mapstructure:"ingest_spec"`
	VerifySpec   string `yaml:"verify_spec" mapstructure:"verify_spec"`
	ClassifySpec string `yaml:"classify_spec" mapstructure:"classify_spec"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("JOBINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "jobintel.db")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("registry.failing_threshold", 5)
	v.SetDefault("registry.reliability_alpha", 0.3)
	v.SetDefault("ingest.default_limit", 20)
	v.SetDefault("ingest.fetch_timeout", 60*time.Second)
	v.SetDefault("verify.staleness_window", 2*time.Hour)
	v.SetDefault("verify.expire_after_checks", 3)
	v.SetDefault("verify.default_limit", 100)
	v.SetDefault("verify.check_timeout", 10*time.Second)
	v.SetDefault("enrich.default_limit", 25)
	v.SetDefault("enrich.max_description_len", 6000)
	v.SetDefault("enrich.inter_call_delay", 500*time.Millisecond)
	v.SetDefault("enrich.max_sampled_errors", 5)
	v.SetDefault("logo.inter_item_delay", 50*time.Millisecond)
	v.SetDefault("logo.batch_size", 50)
	v.SetDefault("logo.max_concurrent", 4)
	v.SetDefault("logo.check_timeout", 5*time.Second)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("scrape_api.base_url", "https://r.jina.ai")
	v.SetDefault("scrape_api.search_base_url", "https://s.jina.ai")
	v.SetDefault("server.port", 8080)
	v.SetDefault("scheduler.ingest_spec", "@every 30m")
	v.SetDefault("scheduler.verify_spec", "@every 2h")
	v.SetDefault("scheduler.classify_spec", "@every 1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; everything has defaults or env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a component needs are present.
// Component is one of "ingest", "verify", "classify", "logo", "serve".
func (c *Config) Validate(component string) error {
	var missing []string

	if c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url")
	}

	switch component {
	case "classify":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
	case "serve":
		if c.Server.CronSecret == "" {
			missing = append(missing, "server.cron_secret")
		}
	}

	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		missing = append(missing, "cache.redis_addr")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
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
