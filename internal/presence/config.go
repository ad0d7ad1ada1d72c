package presence

import (
	"time"

	"go.uber.org/zap"
)

type Config struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat-interval"`
	FetchInterval     time.Duration `mapstructure:"fetch-interval"`
	SweepInterval     time.Duration `mapstructure:"sweep-interval"`
	// StaleAfter is how long a user stays online locally without a fresh snapshot.
	StaleAfter time.Duration `mapstructure:"stale-after"`
	// MinFetchSpacing applies to non-forced fetches only.
	MinFetchSpacing time.Duration `mapstructure:"min-fetch-spacing"`
	RetryBaseDelay  time.Duration `mapstructure:"retry-base-delay"`
	RetryMaxDelay   time.Duration `mapstructure:"retry-max-delay"`
	// MaxFailures is the number of consecutive failed fetches after which the tracker
	// reports disconnected and drops its presence data.
	MaxFailures    int           `mapstructure:"max-failures"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type Deps struct {
	Store  Store
	Logger *zap.Logger
	Clock  Clock
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 60 * time.Second,
		FetchInterval:     30 * time.Second,
		SweepInterval:     30 * time.Second,
		StaleAfter:        2 * time.Minute,
		MinFetchSpacing:   10 * time.Second,
		RetryBaseDelay:    time.Second,
		RetryMaxDelay:     30 * time.Second,
		MaxFailures:       5,
		RequestTimeout:    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.FetchInterval <= 0 {
		c.FetchInterval = def.FetchInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = def.StaleAfter
	}
	if c.MinFetchSpacing <= 0 {
		c.MinFetchSpacing = def.MinFetchSpacing
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = def.RetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = def.RetryMaxDelay
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = def.MaxFailures
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}

	return c
}
