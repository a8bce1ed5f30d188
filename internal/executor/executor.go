package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/sol-strategies/hookrunner/internal/constants"
	"github.com/sol-strategies/hookrunner/internal/matcher"
	"github.com/sol-strategies/hookrunner/internal/reporter"
	"github.com/sol-strategies/hookrunner/internal/step"
)

func logger() *log.Logger { return log.Default().WithPrefix("executor") }

// DefaultShell runs every composed command.
const DefaultShell = "/bin/bash"

const waitDelay = 2 * time.Second

// Reporter receives progress for one step execution.
type Reporter interface {
	Update(message string) error
	Resolve(status step.Status, message string) error
}

// Executor runs steps as shell subprocesses.
type Executor struct {
	shell string
}

// New returns an Executor that runs commands with shell, or DefaultShell
// when shell is empty.
func New(shell string) *Executor {
	if shell == "" {
		shell = DefaultShell
	}
	return &Executor{shell: shell}
}

// Execute runs cmd in ectx and always returns a result: skip, success or
// failure. Errors never escape, and the reporter is resolved before Execute
// returns.
func (e *Executor) Execute(ctx context.Context, cmd step.Command, ectx step.Context, r Reporter) step.Result {
	start := time.Now()
	if err := r.Update("Running"); err != nil {
		logger().Debug("reporter update failed", "step", cmd.Name, "error", err)
	}

	result := e.execute(ctx, cmd, ectx, r)
	result.Duration = time.Since(start)

	var message string
	if result.Status == step.StatusSkipped {
		message = result.SkipReason
	}
	if err := r.Resolve(result.Status, message); err != nil {
		logger().Debug("reporter resolve failed", "step", cmd.Name, "error", err)
	}

	logger().Debug("step resolved", "step", cmd.Name, "status", result.Status, "duration", result.Duration)
	return result
}

func (e *Executor) execute(ctx context.Context, cmd step.Command, ectx step.Context, r Reporter) step.Result {
	decision, err := matcher.ShouldRun(cmd, ectx)
	switch decision {
	case matcher.Invalid:
		return step.Failed(cmd, err.Error())
	case matcher.Skip:
		return step.Skipped(cmd, reporter.SkipMessage(cmd.OnlyOn))
	}

	command, err := Compose(cmd, ectx)
	if err != nil {
		return step.Failed(cmd, fmt.Sprintf("composing command: %v", err))
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	execCmd := exec.CommandContext(ctx, e.shell, "-c", command)
	execCmd.Dir = ectx.WorkingDirectory
	execCmd.Env = append(os.Environ(), ectx.Env...)
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr
	// orphaned grandchildren may hold the pipes open after a kill
	execCmd.WaitDelay = waitDelay

	logger().Debug("spawning step", "step", cmd.Name, "cwd", ectx.WorkingDirectory, "command", command)
	if err := execCmd.Start(); err != nil {
		return step.Failed(cmd, fmt.Sprintf("spawning %s in %s: %v", e.shell, ectx.WorkingDirectory, err))
	}
	if err := r.Update(fmt.Sprintf("Running (pid %d)", execCmd.Process.Pid)); err != nil {
		logger().Debug("reporter update failed", "step", cmd.Name, "error", err)
	}

	waitErr := execCmd.Wait()
	if waitErr == nil {
		return step.Succeeded(cmd)
	}
	// a background child still holding the pipes does not change the exit code
	if errors.Is(waitErr, exec.ErrWaitDelay) && execCmd.ProcessState != nil && execCmd.ProcessState.Success() {
		logger().Debug("step exited but its output was still held open", "step", cmd.Name, "wait_delay", waitDelay)
		return step.Succeeded(cmd)
	}

	diagnostic := Diagnostic(stderr.String(), stdout.String())
	var exitErr *exec.ExitError
	switch {
	case cmd.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded):
		diagnostic = fmt.Sprintf("step timed out after %s\n%s", cmd.Timeout, diagnostic)
	case ctx.Err() != nil:
		diagnostic = fmt.Sprintf("step cancelled: %v\n%s", ctx.Err(), diagnostic)
	case !errors.As(waitErr, &exitErr):
		diagnostic = fmt.Sprintf("waiting for step: %v\n%s", waitErr, diagnostic)
	}
	return step.Failed(cmd, diagnostic)
}

// Diagnostic concatenates captured stderr with a labelled stdout section.
func Diagnostic(stderr, stdout string) string {
	return stderr + "\nstdout :\n" + stdout
}

// Compose builds the shell command for cmd: the args placeholder is replaced
// by the forwarded args as one double-quoted word and, for runtimes that
// need it, the command is wrapped in activation and deactivation.
func Compose(cmd step.Command, ectx step.Context) (string, error) {
	command := strings.Replace(cmd.Command, step.ArgsPlaceholder, quoteArgs(ectx.ForwardedArgs), 1)

	if constants.RequiresActivation(ectx.RuntimeKind) && ectx.ActivationScript != "" {
		script, err := syntax.Quote(ectx.ActivationScript, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("quoting activation script %q: %w", ectx.ActivationScript, err)
		}
		command = fmt.Sprintf("source %s && {\n%s\n} && %s", script, command, constants.DeactivateCommand(ectx.RuntimeKind))
	}
	return command, nil
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

func quoteArgs(args []string) string {
	return `"` + doubleQuoteEscaper.Replace(strings.Join(args, " ")) + `"`
}
