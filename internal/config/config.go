package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Board    BoardConfig    `mapstructure:"board"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type BoardConfig struct {
	File string `mapstructure:"file"`
}

type GameConfig struct {
	// CheckRep enables invariant verification after every board mutation.
	// Costs a full grid scan per flip; keep off in release.
	CheckRep bool `mapstructure:"checkRep"`
}

// DatabaseConfig configures the match-history store. An empty DSN disables
// history entirely; the game itself never touches the database.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig configures the leaderboard. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
