// internal/workers/matching/match-competition/config.go
package matchcompetition

import "time"

type Config struct {
	Timeout        time.Duration
	ResultCacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		ResultCacheTTL: 10 * time.Minute,
	}
}
