// internal/workers/matching/score-confidence/config.go
package scoreconfidence

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
