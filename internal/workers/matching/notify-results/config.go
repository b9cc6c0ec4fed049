// internal/workers/matching/notify-results/config.go
package notifyresults

import "time"

type Config struct {
	Timeout        time.Duration
	DefaultRetries int32
	// FromAddress must be a verified SES identity.
	FromAddress string
	// TopicARN receives the per-session digest; empty disables the digest.
	TopicARN string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		DefaultRetries: 3,
	}
}
