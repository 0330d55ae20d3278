package config

import (
	"github.com/caarlos0/env/v10"
	_ "github.com/joho/godotenv/autoload"

	"skill-exchange/challenge-service/internal/utils/mongodb"
)

// Config holds all application configuration
type Config struct {
	MongoDB mongodb.Config
	Server  ServerConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Engine  EngineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"8084"`
}

// RedisConfig holds cache configuration
type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
}

// AuthConfig holds the shared secret for validating auth-service tokens
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

// EngineConfig holds progression engine tunables
type EngineConfig struct {
	// RankerSeed fixes the ranking jitter; 0 seeds from the clock.
	RankerSeed int64 `env:"RANKER_SEED" envDefault:"0"`
	// StreakResetOnMissedDay zeroes streaks after a skipped day.
	StreakResetOnMissedDay bool `env:"STREAK_RESET_ON_MISSED_DAY" envDefault:"false"`
}

// NewConfig creates a new Config
func NewConfig() (*Config, error) {
	cfg := new(Config)
	err := env.Parse(cfg)

	return cfg, err
}
