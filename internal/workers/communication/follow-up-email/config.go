// internal/workers/communication/follow-up-email/config.go
package followupemail

import (
	"fmt"
	"time"

	"applysync/internal/common/config"
)

type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	JobType         string        `mapstructure:"job_type"`
	MaxJobsActive   int           `mapstructure:"max_jobs_active"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultTimezone string        `mapstructure:"default_timezone"`
	SendHour        int           `mapstructure:"send_hour"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	BaseBackoff     time.Duration `mapstructure:"base_backoff"`
	QueueKey        string        `mapstructure:"queue_key"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		JobType:         "follow-up-email",
		MaxJobsActive:   5,
		Timeout:         30 * time.Second,
		DefaultTimezone: "UTC",
		SendHour:        10,
		MaxAttempts:     3,
		BaseBackoff:     time.Second,
		QueueKey:        "applysync:followup",
		PollTimeout:     5 * time.Second,
	}
}

// ConfigFromAppConfig derives the scheduler settings from the process config.
func ConfigFromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	f := cfg.FollowUp
	if f.JobType != "" {
		c.JobType = f.JobType
	}
	if cfg.Camunda.MaxJobsActive > 0 {
		c.MaxJobsActive = cfg.Camunda.MaxJobsActive
	}
	if cfg.Camunda.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.Camunda.Timeout)
	}
	if f.DefaultTimezone != "" {
		c.DefaultTimezone = f.DefaultTimezone
	}
	c.SendHour = f.SendHour
	if f.MaxAttempts > 0 {
		c.MaxAttempts = f.MaxAttempts
	}
	if f.BaseBackoff > 0 {
		c.BaseBackoff = config.GetDuration(f.BaseBackoff)
	}
	if f.QueueKey != "" {
		c.QueueKey = f.QueueKey
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.SendHour < 0 || c.SendHour > 23 {
		return fmt.Errorf("send_hour must be between 0 and 23")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if c.BaseBackoff < 0 {
		return fmt.Errorf("base_backoff must not be negative")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("default_timezone %q: %w", c.DefaultTimezone, err)
	}
	return nil
}
