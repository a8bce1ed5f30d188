package config

import (
	"fmt"
	"time"
)

// Run holds the execution policy shared by all groups.
type Run struct {
	// Shell runs every step command with -c
	Shell string `koanf:"shell"`
	// Concurrency bounds how many groups run at once, 0 means unlimited
	Concurrency int `koanf:"concurrency"`
	// FailFast skips steps that have not started once any step fails
	FailFast bool `koanf:"fail_fast"`
	// StepTimeout bounds every step unless the step sets its own timeout, empty means no limit
	StepTimeout string `koanf:"step_timeout"`
	// Lock holds a lock file in the git directory for the whole run
	Lock bool `koanf:"lock"`
	// Parsed
	StepTimeoutDur time.Duration `koanf:"-"`
}

func (r *Run) Validate() error {
	if r.Shell == "" {
		return fmt.Errorf("run.shell is required")
	}
	if r.Concurrency < 0 {
		return fmt.Errorf("run.concurrency must be >= 0")
	}
	if r.StepTimeout != "" {
		d, err := time.ParseDuration(r.StepTimeout)
		if err != nil {
			return fmt.Errorf("run.step_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("run.step_timeout must be > 0")
		}
		r.StepTimeoutDur = d
	}
	return nil
}
