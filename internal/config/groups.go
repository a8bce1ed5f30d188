package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/sol-strategies/hookrunner/internal/constants"
	"github.com/sol-strategies/hookrunner/internal/matcher"
	"github.com/sol-strategies/hookrunner/internal/step"
)

type Step struct {
	Name    string `koanf:"name"`
	Command string `koanf:"command"`
	OnlyOn  string `koanf:"only_on"`
	Timeout string `koanf:"timeout"`
	// Parsed
	TimeoutDur time.Duration `koanf:"-"`
}

// Group is a set of steps sharing a working directory and runtime.
type Group struct {
	Name         string            `koanf:"name"`
	Directory    string            `koanf:"directory"`
	Type         string            `koanf:"type"`
	VenvActivate string            `koanf:"venv_activate"`
	Serial       bool              `koanf:"serial"`
	Hooks        map[string][]Step `koanf:"hooks"`
}

func (g *Group) Validate() error {
	if g.Directory == "" {
		g.Directory = "."
	}
	g.Directory = filepath.Clean(g.Directory)
	if filepath.IsAbs(g.Directory) || g.Directory == ".." || strings.HasPrefix(g.Directory, ".."+string(filepath.Separator)) {
		return fmt.Errorf("directory must be relative to the repository root, got %q", g.Directory)
	}
	if g.Name == "" {
		g.Name = g.Directory
	}
	if g.Type != "" && !constants.IsValidRuntimeKind(g.Type) {
		return fmt.Errorf("type must be one of %v, got %q", constants.ValidRuntimeKinds, g.Type)
	}

	hooks := make([]string, 0, len(g.Hooks))
	for hook := range g.Hooks {
		hooks = append(hooks, hook)
	}
	slices.Sort(hooks)

	for _, hook := range hooks {
		if !constants.IsValidHookType(hook) {
			return fmt.Errorf("hooks: unknown git hook %q, must be one of %v", hook, constants.ValidHookTypes)
		}
		steps := g.Hooks[hook]
		for i := range steps {
			if err := steps[i].Validate(); err != nil {
				return fmt.Errorf("hooks.%s[%d]: %w", hook, i, err)
			}
		}
	}
	return nil
}

func (s *Step) Validate() error {
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("command is required")
	}
	if _, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(s.Command), ""); err != nil {
		return fmt.Errorf("command %q is not valid shell: %w", s.Command, err)
	}
	if s.Name == "" {
		s.Name = s.Command
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be > 0")
		}
		s.TimeoutDur = d
	}
	// reported as a failed step at run time so sibling steps still run
	if s.OnlyOn != "" {
		if err := matcher.Validate(s.OnlyOn); err != nil {
			log.Warn("step will fail", "step", s.Name, "error", err)
		}
	}
	return nil
}

// StepCommand converts s into a runnable command. defaultTimeout applies
// when the step has no timeout of its own.
func (s Step) StepCommand(defaultTimeout time.Duration) step.Command {
	timeout := s.TimeoutDur
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return step.Command{
		Name:    s.Name,
		Command: s.Command,
		OnlyOn:  s.OnlyOn,
		Timeout: timeout,
	}
}
