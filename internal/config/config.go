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
	Caspio   CaspioConfig   `yaml:"caspio" mapstructure:"caspio"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Remedy   RemedyConfig   `yaml:"remedy" mapstructure:"remedy"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CaspioConfig holds bridge-store credentials and client tuning.
type CaspioConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TokenURL     string  `yaml:"token_url" mapstructure:"token_url"`
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	PageSize     int     `yaml:"page_size" mapstructure:"page_size"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// RegistryConfig lists registry sources in priority order. The first
// source to claim a normalized name wins; later sources never override.
type RegistryConfig struct {
	Sources []SourceConfig `yaml:"sources" mapstructure:"sources"`
}

// SourceConfig configures one registry source. Type is one of: store (the
// customer table in the bridge store), csv, xlsx, postgres (auxiliary
// snapshot table).
type SourceConfig struct {
	Type        string `yaml:"type" mapstructure:"type"`
	Path        string `yaml:"path" mapstructure:"path"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	NameColumn  string `yaml:"name_column" mapstructure:"name_column"`
	IDColumn    string `yaml:"id_column" mapstructure:"id_column"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Query       string `yaml:"query" mapstructure:"query"`
}

// RemedyConfig tunes the remediation pipeline.
type RemedyConfig struct {
	Concurrency    int    `yaml:"concurrency" mapstructure:"concurrency"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	MaxErrorsShown int    `yaml:"max_errors_shown" mapstructure:"max_errors_shown"`
	CheckpointPath string `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
	ReportDir      string `yaml:"report_dir" mapstructure:"report_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REMEDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("caspio.rate_limit", 10)
	v.SetDefault("caspio.page_size", 1000)
	v.SetDefault("caspio.max_retries", 3)
	v.SetDefault("remedy.concurrency", 8)
	v.SetDefault("remedy.batch_size", 200)
	v.SetDefault("remedy.max_errors_shown", 10)
	v.SetDefault("remedy.checkpoint_path", "remedy-checkpoint.db")
	v.SetDefault("remedy.report_dir", ".")

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
