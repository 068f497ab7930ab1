// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// Prefix is prepended to every variable name, e.g. TURNENGINE_HTTP_ADDR.
const Prefix = "TURNENGINE"

// Config holds everything the server and CLI need.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Log      LogConfig
	Rules    RulesConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"30s"`
}

// CatalogConfig points at the board data.
type CatalogConfig struct {
	Dir    string `envconfig:"DATA_DIR" default:"data"`
	Format string `envconfig:"CATALOG_FORMAT"` // csv, yaml or empty to infer
}

// AuthConfig holds seat-token settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
}

// RedisConfig configures the action-log publisher. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// PostgresConfig configures the snapshot store. An empty DSN disables it.
type PostgresConfig struct {
	DSN string `envconfig:"POSTGRES_DSN"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// RulesConfig overrides engine.DefaultRules.
type RulesConfig struct {
	StartingMoney          int           `envconfig:"STARTING_MONEY" default:"0"`
	MoneyFloor             *int          `envconfig:"MONEY_FLOOR"`
	NegotiationTimePenalty int           `envconfig:"NEGOTIATION_TIME_PENALTY" default:"1"`
	AutoPlayDelay          time.Duration `envconfig:"AI_DELAY" default:"1500ms"`
	MaxPlayers             int           `envconfig:"MAX_PLAYERS" default:"4"`
	Seed                   uint64        `envconfig:"SEED" default:"0"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return &cfg, nil
}

// EngineRules converts the overrides into engine rules.
func (r RulesConfig) EngineRules() engine.Rules {
	rules := engine.DefaultRules()
	rules.StartingMoney = r.StartingMoney
	if r.MoneyFloor != nil {
		rules.MoneyFloor = *r.MoneyFloor
	}
	rules.NegotiationTimePenalty = r.NegotiationTimePenalty
	rules.AutoPlayDelay = r.AutoPlayDelay
	if r.MaxPlayers > 0 {
		rules.MaxPlayers = r.MaxPlayers
	}
	return rules
}

// NewLogger builds the process logger from LogConfig.
func (l LogConfig) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	switch l.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
	return logger, nil
}
