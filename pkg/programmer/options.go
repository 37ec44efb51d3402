package programmer

import "time"

// Config holds programmer tuning knobs.
type Config struct {
	// PageDelay is the settle time after each page-program transfer. The
	// bridge gives no write-in-progress feedback, so a fixed delay stands
	// in for status polling.
	PageDelay time.Duration

	// EraseRampInterval is the pause between simulated erase progress
	// steps.
	EraseRampInterval time.Duration
}

func defaultConfig() Config {
	return Config{
		PageDelay:         10 * time.Millisecond,
		EraseRampInterval: 200 * time.Millisecond,
	}
}

// Option configures a Programmer.
type Option func(*Config)

// WithPageDelay overrides the per-page settle time.
func WithPageDelay(d time.Duration) Option {
	return func(c *Config) {
		c.PageDelay = d
	}
}

// WithEraseRampInterval overrides the pause between erase progress steps.
func WithEraseRampInterval(d time.Duration) Option {
	return func(c *Config) {
		c.EraseRampInterval = d
	}
}
