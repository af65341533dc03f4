package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/invoicereminder/internal/config"
)

// Config controls the trigger engine and per-run limits.
type Config struct {
	Timezone   string
	JobTimeout time.Duration
	StopGrace  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timezone:   "UTC",
		JobTimeout: 5 * time.Minute,
		StopGrace:  30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{Timezone: strings.TrimSpace(cfg.SchedulerTimezone)}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = defaults.Timezone
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaults.StopGrace
	}
	return c
}

func (c Config) location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
