// internal/workers/application/process-application/config.go
package processapplication

import (
	"fmt"
	"time"

	"applysync/internal/common/config"
)

type Config struct {
	SignedURLTTL   time.Duration
	MaxUploadBytes int64
	// StepTimeout bounds each best-effort step. ParseTimeout overrides it for
	// the parse step, which waits on a synchronous remote function.
	StepTimeout  time.Duration
	ParseTimeout time.Duration
	// WriteTimeout is the HTTP server's response deadline. Zero leaves it
	// unbounded; otherwise it must outlast StepBudget.
	WriteTimeout time.Duration
	// DispatchMode names how follow-up intents leave the process.
	DispatchMode string
	// ExposeStack adds the diagnostic trace to error responses.
	ExposeStack bool
}

func DefaultConfig() *Config {
	return &Config{
		SignedURLTTL:   7 * 24 * time.Hour,
		MaxUploadBytes: 10 << 20,
		StepTimeout:    15 * time.Second,
		ParseTimeout:   60 * time.Second,
		DispatchMode:   config.DispatchLambda,
	}
}

// ConfigFromAppConfig derives the intake settings from the process config.
func ConfigFromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.AWS.S3.SignedURLTTL > 0 {
		c.SignedURLTTL = time.Duration(cfg.AWS.S3.SignedURLTTL) * time.Second
	}
	if cfg.Server.MaxUploadBytes > 0 {
		c.MaxUploadBytes = cfg.Server.MaxUploadBytes
	}
	if cfg.AWS.Lambda.ParseTimeout > 0 {
		c.ParseTimeout = config.GetDuration(cfg.AWS.Lambda.ParseTimeout)
	}
	if cfg.Webhook.Timeout > 0 {
		c.StepTimeout = config.GetDuration(cfg.Webhook.Timeout)
	}
	if cfg.Server.WriteTimeout > 0 {
		c.WriteTimeout = config.GetDuration(cfg.Server.WriteTimeout)
	}
	if cfg.FollowUp.Dispatch != "" {
		c.DispatchMode = cfg.FollowUp.Dispatch
	}
	c.ExposeStack = cfg.App.IsDevelopment()
	return c
}

func (c *Config) Validate() error {
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("signed url ttl must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.StepTimeout < 0 || c.ParseTimeout < 0 {
		return fmt.Errorf("step timeouts must not be negative")
	}
	if c.WriteTimeout > 0 && c.WriteTimeout <= c.StepBudget() {
		return fmt.Errorf("server write timeout %s must exceed the step budget %s", c.WriteTimeout, c.StepBudget())
	}
	return nil
}

// StepBudget is the longest a submission can spend in its timed steps: the
// store, record, notify and follow-up steps under StepTimeout plus the parse.
func (c *Config) StepBudget() time.Duration {
	return 4*c.StepTimeout + c.ParseTimeout
}
