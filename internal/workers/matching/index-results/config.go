// internal/workers/matching/index-results/config.go
package indexresults

import "time"

type Config struct {
	Timeout        time.Duration
	DefaultRetries int32
	IndexName      string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		DefaultRetries: 3,
		IndexName:      "matching-results",
	}
}
