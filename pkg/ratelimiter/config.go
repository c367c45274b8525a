package ratelimiter

import (
	"errors"
	"time"
)

// Config describes a token bucket.
type Config struct {
	Capacity       int           `env:"RATELIMIT_CAPACITY" envDefault:"10"`
	RefillRate     int           `env:"RATELIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATELIMIT_REFILL_INTERVAL" envDefault:"30s"`
}

// DefaultConfig allows bursts of 10 and one more attempt every 30 seconds.
func DefaultConfig() Config {
	return Config{
		Capacity:       10,
		RefillRate:     1,
		RefillInterval: 30 * time.Second,
	}
}

// Validate reports a non-positive field.
func (c Config) Validate() error {
	if c.Capacity <= 0 || c.RefillRate <= 0 || c.RefillInterval <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("capacity, refill rate and refill interval must be positive"))
	}
	return nil
}
