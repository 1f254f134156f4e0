// Package config loads the console's settings from DESK_* environment variables.
package config

import (
    "fmt"
    "strings"

    "github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "DESK"

// Local storage backends for the offline queue and snapshot.
const (
    LocalStoreMemory = "memory"
    LocalStoreFile   = "file"
    LocalStoreRedis  = "redis"
)

type Config struct {
    Port      string `envconfig:"PORT" default:"8080"`
    LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
    LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

    // DatabaseURL selects the Postgres store; empty keeps orders in memory.
    DatabaseURL string `envconfig:"DATABASE_URL"`
    // RedisURL fans store changes out across instances and backs the redis local store.
    RedisURL string `envconfig:"REDIS_URL"`

    LocalStore     string `envconfig:"LOCAL_STORE" default:"memory"`
    LocalStorePath string `envconfig:"LOCAL_STORE_PATH" default:"./data"`

    QueueMaxAttempts int `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
    CreateRatePerMin int `envconfig:"CREATE_RATE_PER_MIN" default:"10"`
    // StartOnline is the connectivity flag before the first connectivity report.
    StartOnline bool `envconfig:"START_ONLINE" default:"true"`
}

func Load() (*Config, error) {
    var cfg Config
    if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
        return nil, fmt.Errorf("parsing config: %w", err)
    }
    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return &cfg, nil
}

func (c *Config) validate() error {
    c.LocalStore = strings.ToLower(strings.TrimSpace(c.LocalStore))
    switch c.LocalStore {
    case LocalStoreMemory, LocalStoreFile:
    case LocalStoreRedis:
        if c.RedisURL == "" {
            return fmt.Errorf("%s_LOCAL_STORE=redis requires %s_REDIS_URL", EnvPrefix, EnvPrefix)
        }
    default:
        return fmt.Errorf("%s_LOCAL_STORE: unknown backend %q", EnvPrefix, c.LocalStore)
    }
    if c.QueueMaxAttempts <= 0 {
        return fmt.Errorf("%s_QUEUE_MAX_ATTEMPTS must be positive", EnvPrefix)
    }
    if c.CreateRatePerMin <= 0 {
        return fmt.Errorf("%s_CREATE_RATE_PER_MIN must be positive", EnvPrefix)
    }
    return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }
