// internal/workers/matching/match-races/config.go
package matchraces

import "time"

type Config struct {
	Timeout                  time.Duration
	DistanceTolerancePercent float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:                  10 * time.Second,
		DistanceTolerancePercent: 0.05,
	}
}
