package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Sector    SectorConfig    `yaml:"sector" mapstructure:"sector"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Divisions DivisionsConfig `yaml:"divisions" mapstructure:"divisions"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the analytics API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SectorConfig configures sector subtree expansion and the offline
// taxonomy cache.
type SectorConfig struct {
	MaxVisited int    `yaml:"max_visited" mapstructure:"max_visited"`
	CachePath  string `yaml:"cache_path" mapstructure:"cache_path"`
}

// ReportConfig carries assessment defaults stamped into report
// metadata when the caller supplies none.
type ReportConfig struct {
	AssessmentType  string `yaml:"assessment_type" mapstructure:"assessment_type"`
	ConfidenceLevel string `yaml:"confidence_level" mapstructure:"confidence_level"`
	Currency        string `yaml:"currency" mapstructure:"currency"`
	PageSize        int    `yaml:"page_size" mapstructure:"page_size"`
}

// RetryConfig configures transient-error retries on the ranking path.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// DivisionsConfig configures the shapefile loader.
type DivisionsConfig struct {
	BatchSize     int     `yaml:"batch_size" mapstructure:"batch_size"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// ExportConfig configures report export output.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Format    string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("IMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sector.max_visited", 10000)
	v.SetDefault("sector.cache_path", "sectors.db")
	v.SetDefault("report.assessment_type", "rapid")
	v.SetDefault("report.confidence_level", "medium")
	v.SetDefault("report.currency", "USD")
	v.SetDefault("report.page_size", 10)
	v.SetDefault("retry.max_attempts", 2)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("divisions.batch_size", 500)
	v.SetDefault("divisions.rate_per_second", 5.0)
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.format", "xlsx")

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
