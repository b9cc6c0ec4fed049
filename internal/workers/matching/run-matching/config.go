// internal/workers/matching/run-matching/config.go
package runmatching

import "time"

type Config struct {
	// Timeout bounds one full matching run, not one proposal round.
	Timeout        time.Duration
	DefaultRetries int32
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        2 * time.Minute,
		DefaultRetries: 3,
	}
}
