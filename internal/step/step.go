package step

import (
	"fmt"
	"time"
)

// ArgsPlaceholder is replaced in a step command by the forwarded hook arguments.
const ArgsPlaceholder = "{args}"

// Command is a single runnable step.
type Command struct {
	Name    string
	Command string
	OnlyOn  string // optional glob, empty means the step always runs
	Timeout time.Duration
}

// Context is the per-invocation environment of a step. It is built by the
// orchestrator and never mutated once steps start.
type Context struct {
	WorkingDirectory string
	StagedFiles      []string
	ForwardedArgs    []string
	RuntimeKind      string
	ActivationScript string
	// Env is appended to the inherited process environment of the child.
	Env []string
}

// Status is the outcome kind of a step.
type Status int

const (
	StatusSkipped Status = iota + 1
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of attempting one step.
type Result struct {
	Step       Command
	Status     Status
	Diagnostic string // stderr then labelled stdout, only set for failures
	SkipReason string
	Duration   time.Duration
}

// Skipped returns a skipped result for c.
func Skipped(c Command, reason string) Result {
	return Result{Step: c, Status: StatusSkipped, SkipReason: reason}
}

// Succeeded returns a successful result for c.
func Succeeded(c Command) Result {
	return Result{Step: c, Status: StatusSucceeded}
}

// Failed returns a failed result for c carrying diagnostic.
func Failed(c Command, diagnostic string) Result {
	return Result{Step: c, Status: StatusFailed, Diagnostic: diagnostic}
}

func (r Result) Failed() bool { return r.Status == StatusFailed }
