// internal/workers/matching/purge-session/config.go
package purgesession

import "time"

type Config struct {
	Timeout        time.Duration
	DefaultRetries int32
	IndexName      string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		DefaultRetries: 3,
		IndexName:      "matching-results",
	}
}
