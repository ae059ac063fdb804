// ABOUTME: Environment-backed defaults for the aircast CLI
// ABOUTME: Loads .env when present and exposes typed defaults
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds flag defaults that can come from the environment.
type Config struct {
	Port    int
	Volume  int
	Latency int // ticks; negative selects the built-in default
	Debug   int // 0 = quiet
}

// Load reads defaults from the environment, honoring a .env file when one
// exists in the working directory.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		Port:    intEnv("AIRCAST_PORT", 5000),
		Volume:  intEnv("AIRCAST_VOLUME", 50),
		Latency: intEnv("AIRCAST_LATENCY", -1),
		Debug:   intEnv("AIRCAST_DEBUG", 0),
	}
}

func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
