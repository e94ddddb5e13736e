package tasks

import (
	"time"

	"github.com/mrlokans/readnext/internal/config"
)

// Config sizes the worker pool and controls how long finished tasks are kept.
type Config struct {
	Workers           int
	MaxRetries        int
	RetryDelay        time.Duration
	TaskTimeout       time.Duration
	ReleaseAfter      time.Duration // stuck tasks go back to the queue after this
	CleanupInterval   time.Duration
	RetentionDuration time.Duration
}

// DefaultConfig returns the settings used when TASK_* variables are unset.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

// ConfigFrom converts application settings, keeping defaults for zero values.
func ConfigFrom(s config.Tasks) Config {
	return Config{
		Workers:           s.Workers,
		MaxRetries:        s.MaxRetries,
		RetryDelay:        s.RetryDelay,
		TaskTimeout:       s.TaskTimeout,
		ReleaseAfter:      s.ReleaseAfter,
		CleanupInterval:   s.CleanupInterval,
		RetentionDuration: s.RetentionDuration,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = d.TaskTimeout
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = d.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.RetentionDuration <= 0 {
		c.RetentionDuration = d.RetentionDuration
	}
	return c
}
