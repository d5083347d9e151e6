package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once in
// cmd and passed into components; nothing reads process-wide state directly.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Parallel  ParallelConfig  `yaml:"parallel" mapstructure:"parallel"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Reports   ReportsConfig   `yaml:"reports" mapstructure:"reports"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	Model           string  `yaml:"model" mapstructure:"model"`
	MaxTokens       int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
	WebSearch       bool    `yaml:"web_search" mapstructure:"web_search"`
	SummaryPolish   bool    `yaml:"summary_polish" mapstructure:"summary_polish"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ExtractMaxChars int     `yaml:"extract_max_chars" mapstructure:"extract_max_chars"`
}

// ParallelConfig holds the programmatic search API settings.
type ParallelConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ResearchConfig configures source discovery.
type ResearchConfig struct {
	StrictAuthority   bool   `yaml:"strict_authority" mapstructure:"strict_authority"`
	PerQueryResults   int    `yaml:"per_query_results" mapstructure:"per_query_results"`
	SearchTimeoutSecs int    `yaml:"search_timeout_secs" mapstructure:"search_timeout_secs"`
	RegistryPath      string `yaml:"registry_path" mapstructure:"registry_path"`
	UserAgent         string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ScrapeConfig configures per-source content fetching.
type ScrapeConfig struct {
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRawChars     int    `yaml:"max_raw_chars" mapstructure:"max_raw_chars"`
	MaxCleanedChars int    `yaml:"max_cleaned_chars" mapstructure:"max_cleaned_chars"`
}

// PipelineConfig configures orchestration concurrency.
type PipelineConfig struct {
	SectionWorkers int `yaml:"section_workers" mapstructure:"section_workers"`
	FetchWorkers   int `yaml:"fetch_workers" mapstructure:"fetch_workers"`
	ExtractWorkers int `yaml:"extract_workers" mapstructure:"extract_workers"`
	ForecastYears  int `yaml:"forecast_years" mapstructure:"forecast_years"`
}

// ReportsConfig configures artifact output.
type ReportsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// TemporalConfig configures the optional async execution mode.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Timeout returns the content fetch timeout as a duration.
func (c ScrapeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SearchTimeout returns the per-search-call timeout as a duration.
func (c ResearchConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSIGHTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "insightforge.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 600)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.web_search", true)
	v.SetDefault("anthropic.summary_polish", true)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("anthropic.extract_max_chars", 6000)
	v.SetDefault("parallel.base_url", "https://api.parallel.ai/v1")
	v.SetDefault("research.per_query_results", 8)
	v.SetDefault("research.search_timeout_secs", 15)
	v.SetDefault("research.user_agent", "InsightForgeResearchBot/1.0")
	v.SetDefault("scrape.timeout_secs", 20)
	v.SetDefault("scrape.user_agent", "InsightForgeBot/1.0")
	v.SetDefault("scrape.max_raw_chars", 200000)
	v.SetDefault("scrape.max_cleaned_chars", 12000)
	v.SetDefault("pipeline.section_workers", 6)
	v.SetDefault("pipeline.fetch_workers", 8)
	v.SetDefault("pipeline.extract_workers", 8)
	v.SetDefault("pipeline.forecast_years", 5)
	v.SetDefault("reports.dir", "reports")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "market-intel-reports")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode actually needs. Modes are
// "generate", "serve", and "worker".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Pipeline.SectionWorkers < 1 || c.Pipeline.SectionWorkers > 32 {
		problems = append(problems, "pipeline.section_workers must be between 1 and 32")
	}
	if c.Pipeline.FetchWorkers < 1 || c.Pipeline.FetchWorkers > 32 {
		problems = append(problems, "pipeline.fetch_workers must be between 1 and 32")
	}
	if c.Pipeline.ExtractWorkers < 1 || c.Pipeline.ExtractWorkers > 32 {
		problems = append(problems, "pipeline.extract_workers must be between 1 and 32")
	}

	switch mode {
	case "generate":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "worker":
		if c.Temporal.HostPort == "" {
			problems = append(problems, "temporal.host_port is required")
		}
		if c.Temporal.TaskQueue == "" {
			problems = append(problems, "temporal.task_queue is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
