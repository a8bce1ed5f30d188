package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/sol-strategies/hookrunner/internal/config"
	"github.com/sol-strategies/hookrunner/internal/executor"
	"github.com/sol-strategies/hookrunner/internal/hookenv"
	"github.com/sol-strategies/hookrunner/internal/lock"
	"github.com/sol-strategies/hookrunner/internal/reporter"
	"github.com/sol-strategies/hookrunner/internal/step"
)

func logger() *log.Logger { return log.Default().WithPrefix("runner") }

const (
	reasonPreviousFailed = "previous step failed"
	reasonAborted        = "aborted"
)

// Invocation describes one hook run.
type Invocation struct {
	Hook string
	// Root is the repository root that group directories are relative to.
	Root string
	// StagedFiles are repository-relative or absolute paths.
	StagedFiles []string
	Env         *hookenv.Env
	// LockDir holds the run lock when run.lock is enabled.
	LockDir string
}

// RendererFactory returns the renderer for a step label. It is called once
// per step, in configuration order, before anything runs.
type RendererFactory func(label string) reporter.Renderer

type Option func(*Runner)

// WithRenderers overrides how step progress is displayed.
func WithRenderers(f RendererFactory) Option {
	return func(r *Runner) { r.renderers = f }
}

// WithTickInterval sets the running spinner interval. Zero disables ticking.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) { r.tickOpts = []reporter.Option{reporter.WithInterval(d)} }
}

// Runner executes the steps a hook selects and aggregates their results.
type Runner struct {
	cfg       *config.Config
	exec      *executor.Executor
	renderers RendererFactory
	tickOpts  []reporter.Option
}

// New returns a Runner writing progress to out. Terminals get live
// spinner lines, anything else gets one line per resolved step.
func New(cfg *config.Config, out io.Writer, opts ...Option) *Runner {
	r := &Runner{
		cfg:  cfg,
		exec: executor.New(cfg.Run.Shell),
	}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		term := reporter.NewTerminal(out)
		r.renderers = term.Line
	} else {
		plain := reporter.NewPlain(out)
		r.renderers = func(string) reporter.Renderer { return plain }
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type plannedStep struct {
	cmd      step.Command
	reporter *reporter.Step
}

type plannedGroup struct {
	group config.Group
	ectx  step.Context
	steps []plannedStep
}

// Run executes every step configured for inv.Hook. Step failures are
// reported in the summary, the returned error is only for problems that
// prevent the run from starting.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Hook: inv.Hook}

	groups := r.cfg.GroupsFor(inv.Hook)
	if len(groups) == 0 {
		logger().Debug("no steps configured for hook", "hook", inv.Hook)
		return summary, nil
	}

	if r.cfg.Run.Lock && inv.LockDir != "" {
		l, err := lock.Acquire(inv.LockDir, inv.Hook)
		if err != nil {
			return nil, err
		}
		defer l.Release()
	}

	plan, err := r.plan(groups, inv)
	if err != nil {
		return nil, err
	}

	logger().Info(fmt.Sprintf("running %s hook", inv.Hook), "groups", len(plan), "staged_files", len(inv.StagedFiles))

	summary.Groups = make([]GroupResult, len(plan))
	var (
		wg       sync.WaitGroup
		aborted  atomic.Bool
		sem      chan struct{}
		failFast = r.cfg.Run.FailFast
	)
	if r.cfg.Run.Concurrency > 0 {
		sem = make(chan struct{}, r.cfg.Run.Concurrency)
	}

	// groups start in configuration order when concurrency is bounded
	for i, pg := range plan {
		if sem != nil {
			sem <- struct{}{}
		}
		wg.Add(1)
		go func(i int, pg plannedGroup) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			summary.Groups[i] = GroupResult{
				Name:      pg.group.Name,
				Directory: pg.group.Directory,
				Results:   r.runGroup(ctx, pg, &aborted, failFast),
			}
		}(i, pg)
	}
	wg.Wait()

	summary.Duration = time.Since(start)
	succeeded, skipped, failed := summary.Counts()
	logger().Info(fmt.Sprintf("%s hook finished", inv.Hook),
		"succeeded", succeeded,
		"skipped", skipped,
		"failed", failed,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, nil
}

func (r *Runner) plan(groups []config.Group, inv Invocation) ([]plannedGroup, error) {
	staged := make([]string, len(inv.StagedFiles))
	for i, f := range inv.StagedFiles {
		if !filepath.IsAbs(f) {
			f = filepath.Join(inv.Root, filepath.FromSlash(f))
		}
		staged[i] = f
	}

	env := inv.Env
	if env == nil {
		env = &hookenv.Env{}
	}
	vars, err := env.Environ(inv.StagedFiles)
	if err != nil {
		return nil, err
	}

	plan := make([]plannedGroup, 0, len(groups))
	for _, g := range groups {
		pg := plannedGroup{
			group: g,
			ectx: step.Context{
				WorkingDirectory: filepath.Join(inv.Root, g.Directory),
				StagedFiles:      staged,
				ForwardedArgs:    env.Args,
				RuntimeKind:      g.Type,
				ActivationScript: g.VenvActivate,
				Env:              vars,
			},
		}
		for _, s := range g.Hooks[inv.Hook] {
			cmd := s.StepCommand(r.cfg.Run.StepTimeoutDur)
			label := g.Name + " › " + cmd.Name
			pg.steps = append(pg.steps, plannedStep{
				cmd:      cmd,
				reporter: reporter.New(label, r.renderers(label), r.tickOpts...),
			})
		}
		plan = append(plan, pg)
	}
	return plan, nil
}

func (r *Runner) runGroup(ctx context.Context, pg plannedGroup, aborted *atomic.Bool, failFast bool) []step.Result {
	results := make([]step.Result, len(pg.steps))

	if pg.group.Serial {
		previousFailed := false
		for i, ps := range pg.steps {
			switch {
			case previousFailed:
				results[i] = skip(ps, reasonPreviousFailed)
			case aborted.Load():
				results[i] = skip(ps, reasonAborted)
			default:
				results[i] = r.exec.Execute(ctx, ps.cmd, pg.ectx, ps.reporter)
			}
			if results[i].Failed() {
				previousFailed = true
				if failFast {
					aborted.Store(true)
				}
			}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, ps := range pg.steps {
		wg.Add(1)
		go func(i int, ps plannedStep) {
			defer wg.Done()
			if aborted.Load() {
				results[i] = skip(ps, reasonAborted)
				return
			}
			results[i] = r.exec.Execute(ctx, ps.cmd, pg.ectx, ps.reporter)
			if results[i].Failed() && failFast {
				aborted.Store(true)
			}
		}(i, ps)
	}
	wg.Wait()
	return results
}

// skip resolves a step that will not be attempted.
func skip(ps plannedStep, reason string) step.Result {
	if err := ps.reporter.Update(""); err != nil {
		logger().Debug("reporter update failed", "step", ps.cmd.Name, "error", err)
	}
	if err := ps.reporter.Resolve(step.StatusSkipped, reason); err != nil {
		logger().Debug("reporter resolve failed", "step", ps.cmd.Name, "error", err)
	}
	return step.Skipped(ps.cmd, reason)
}
