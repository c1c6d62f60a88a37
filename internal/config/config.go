package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Search SearchConfig `yaml:"search" mapstructure:"search"`
	Geo    GeoConfig    `yaml:"geo" mapstructure:"geo"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the merge store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SearchConfig holds Google Custom Search settings.
type SearchConfig struct {
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	EngineID   string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Topic      string `yaml:"topic" mapstructure:"topic"`
	NumResults int    `yaml:"num_results" mapstructure:"num_results"`
}

// Enabled reports whether both credentials are present.
func (s SearchConfig) Enabled() bool {
	return s.APIKey != "" && s.EngineID != ""
}

// GeoConfig locates the MaxMind City database.
type GeoConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("GEOWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known names used by hosting platforms and the Google tooling.
	for key, alt := range map[string]string{
		"search.api_key":   "GOOGLE_API_KEY",
		"search.engine_id": "GOOGLE_CX",
		"server.port":      "PORT",
	} {
		envName := "GEOWAVE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, alt); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults. Every key needs one so Unmarshal sees its env override.
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.topic", "great wave off kanagawa")
	v.SetDefault("search.num_results", 6)
	v.SetDefault("geo.database_path", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if cfg.Store.Driver == DriverSQLite && cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = "geowave.db"
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "serve" or "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of memory, sqlite, postgres", c.Store.Driver))
	}

	if err := checkLogFormat(c.Log.Format); err != nil {
		problems = append(problems, err.Error())
	}

	if mode == "serve" {
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.Search.NumResults < 1 || c.Search.NumResults > 10 {
			problems = append(problems, fmt.Sprintf("search.num_results %d must be between 1 and 10", c.Search.NumResults))
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func checkLogFormat(format string) error {
	switch format {
	case "json", "console", "":
		return nil
	default:
		return fmt.Errorf("log.format %q is not one of json, console", format)
	}
}

// InitLogger replaces the global zap logger. Every entry carries
// service=geowave; json output uses ISO8601 timestamps.
func InitLogger(cfg LogConfig) error {
	if err := checkLogFormat(cfg.Format); err != nil {
		return eris.Wrap(err, "config: init logger")
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]any{"service": "geowave"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
