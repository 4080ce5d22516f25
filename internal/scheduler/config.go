package scheduler

import (
	"time"

	"github.com/smallbiznis/triviabees/internal/config"
)

// Config controls when settlement runs and how long each run may take.
type Config struct {
	Enabled    bool
	Schedule   string
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Schedule:   "@every 1h",
		JobTimeout: 5 * time.Minute,
	}
}

func ProvideConfig(rewards *config.RewardsConfigHolder) Config {
	settlement := rewards.Get().Settlement
	return Config{
		Enabled:  settlement.Enabled,
		Schedule: settlement.Schedule,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Schedule == "" {
		c.Schedule = defaults.Schedule
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
