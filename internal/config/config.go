package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the server configuration, loaded from YAML with environment
// overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig holds the websocket gateway listen settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the game document store settings. An empty URL
// selects the in-memory store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LoggingConfig holds the zap logger settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// GameConfig holds the rule tunables applied to new games.
type GameConfig struct {
	StartingHealth   int `mapstructure:"starting_health"`
	StartingEnergy   int `mapstructure:"starting_energy"`
	EnergyCap        int `mapstructure:"energy_cap"`
	StartingHandSize int `mapstructure:"starting_hand_size"`
}

// Load reads configuration from the given file, falling back to defaults
// for anything unset. Environment variables prefixed with SPELLSTONE_
// override file values (SPELLSTONE_SERVER_PORT, SPELLSTONE_DATABASE_URL,
// and so on). A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.url", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("game.starting_health", 30)
	v.SetDefault("game.starting_energy", 1)
	v.SetDefault("game.energy_cap", 10)
	v.SetDefault("game.starting_hand_size", 4)

	v.SetEnvPrefix("SPELLSTONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
