// Package config loads the service configuration from config.yaml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"Trestle/internal/calc/analysis"
	"Trestle/internal/calc/interp"
	"Trestle/internal/calc/loads"
	"Trestle/internal/calc/solver"
	"Trestle/internal/workspace"
)

// ServerConfig defines the HTTP server.
type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	CertFile  string  `mapstructure:"cert_file"`
	KeyFile   string  `mapstructure:"key_file"`
	StaticDir string  `mapstructure:"static_dir"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// TLS reports whether both certificate files are configured.
func (s ServerConfig) TLS() bool { return s.CertFile != "" && s.KeyFile != "" }

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type AuthConfig struct {
	TokenKey string        `mapstructure:"token_key"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// AnalysisConfig defines the analysis parameters shared by every workspace.
type AnalysisConfig struct {
	PivotTolerance      float64 `mapstructure:"pivot_tolerance"`
	Subdivisions        int     `mapstructure:"subdivisions"`
	MaxRepairIterations int     `mapstructure:"max_repair_iterations"`
	AutoRepair          bool    `mapstructure:"auto_repair"`
	Exaggeration        float64 `mapstructure:"exaggeration"`
}

// Workspace converts the analysis section into workspace options.
func (a AnalysisConfig) Workspace() workspace.Options {
	o := analysis.DefaultOptions()
	if a.PivotTolerance > 0 {
		o.PivotTolerance = a.PivotTolerance
	}
	if a.Subdivisions > 0 {
		o.Loads.Subdivisions = a.Subdivisions
	}
	return workspace.Options{
		Analysis:            o,
		Interp:              interp.Options{Exaggeration: a.Exaggeration},
		AutoRepair:          a.AutoRepair,
		MaxRepairIterations: a.MaxRepairIterations,
	}
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8443")
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("auth.token_key", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("analysis.pivot_tolerance", solver.DefaultPivotTolerance)
	v.SetDefault("analysis.subdivisions", loads.DefaultSubdivisions)
	v.SetDefault("analysis.max_repair_iterations", 3)
	v.SetDefault("analysis.auto_repair", false)
	v.SetDefault("analysis.exaggeration", 0.0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// Load reads the configuration. An empty path searches for config.yaml in
// the working directory and ./config; a missing file there is not an error.
// TRESTLE_<SECTION>_<KEY> variables override the file, and the older
// DATABASE_URL and TOKEN_KEY names are still honored.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TRESTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", "TRESTLE_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("auth.token_key", "TRESTLE_AUTH_TOKEN_KEY", "TOKEN_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
