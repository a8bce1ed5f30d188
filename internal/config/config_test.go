package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "hookrunner.yml")
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgFile
}

func TestLoadFromFile_WithDefaults(t *testing.T) {
	cfgFile := writeConfig(t, `
groups:
  - directory: svc
    hooks:
      pre-commit:
        - command: go vet ./...
`)

	c := New()
	if err := c.LoadFromFile(cfgFile); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	if c.Log.Level != "info" {
		t.Errorf("expected log.level=info, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" {
		t.Errorf("expected log.format=text, got %q", c.Log.Format)
	}
	if c.Run.Shell != "/bin/bash" {
		t.Errorf("expected run.shell=/bin/bash, got %q", c.Run.Shell)
	}
	if c.Run.Concurrency != 0 || c.Run.FailFast || c.Run.Lock {
		t.Errorf("unexpected run defaults %+v", c.Run)
	}
	if len(c.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(c.Groups))
	}
	g := c.Groups[0]
	if g.Name != "svc" {
		t.Errorf("expected group name to default to directory, got %q", g.Name)
	}
	steps := g.Hooks["pre-commit"]
	if len(steps) != 1 || steps[0].Name != "go vet ./..." {
		t.Errorf("expected step name to default to command, got %+v", steps)
	}
}

func TestLoadFromFile_Full(t *testing.T) {
	cfgFile := writeConfig(t, `
log:
  level: debug
  format: json
run:
  shell: /bin/sh
  concurrency: 2
  fail_fast: true
  step_timeout: 5m
  lock: true
groups:
  - name: backend
    directory: services/api
    type: python
    venv_activate: .venv/bin/activate
    serial: true
    hooks:
      pre-commit:
        - name: lint
          command: ruff check .
          only_on: "**/*.py"
          timeout: 30s
        - name: test
          command: pytest
      commit-msg:
        - command: commitlint --edit {args}
  - name: web
    directory: web
    hooks:
      pre-push:
        - command: npm test
`)

	c := New()
	if err := c.LoadFromFile(cfgFile); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	if c.Log.Level != "debug" {
		t.Errorf("expected log.level=debug, got %q", c.Log.Level)
	}
	if c.Run.StepTimeoutDur != 5*time.Minute {
		t.Errorf("expected run.step_timeout=5m, got %s", c.Run.StepTimeoutDur)
	}
	if c.Run.Concurrency != 2 || !c.Run.FailFast || !c.Run.Lock {
		t.Errorf("unexpected run config %+v", c.Run)
	}

	backend := c.Groups[0]
	if backend.Type != "python" || backend.VenvActivate != ".venv/bin/activate" || !backend.Serial {
		t.Errorf("unexpected backend group %+v", backend)
	}
	lint := backend.Hooks["pre-commit"][0]
	if lint.OnlyOn != "**/*.py" || lint.TimeoutDur != 30*time.Second {
		t.Errorf("unexpected lint step %+v", lint)
	}

	cmd := lint.StepCommand(c.Run.StepTimeoutDur)
	if cmd.Timeout != 30*time.Second {
		t.Errorf("step timeout should win, got %s", cmd.Timeout)
	}
	cmd = backend.Hooks["pre-commit"][1].StepCommand(c.Run.StepTimeoutDur)
	if cmd.Timeout != 5*time.Minute {
		t.Errorf("run timeout should apply, got %s", cmd.Timeout)
	}

	if got := c.GroupsFor("pre-push"); len(got) != 1 || got[0].Name != "web" {
		t.Errorf("GroupsFor(pre-push) = %+v", got)
	}
	if got := c.GroupsFor("pre-commit"); len(got) != 1 || got[0].Name != "backend" {
		t.Errorf("GroupsFor(pre-commit) = %+v", got)
	}
	if got := c.GroupsFor("post-merge"); len(got) != 0 {
		t.Errorf("GroupsFor(post-merge) = %+v", got)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	c := New()
	if err := c.LoadFromFile(filepath.Join(t.TempDir(), "missing.yml")); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(c.Groups) != 0 {
		t.Errorf("expected no groups, got %d", len(c.Groups))
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "log:\n  level: loud\n"},
		{"negative concurrency", "run:\n  concurrency: -1\n"},
		{"bad step timeout", "run:\n  step_timeout: soon\n"},
		{"unknown hook", "groups:\n  - hooks:\n      pre-lunch:\n        - command: true\n"},
		{"empty command", "groups:\n  - hooks:\n      pre-commit:\n        - name: nothing\n"},
		{"unparseable command", "groups:\n  - hooks:\n      pre-commit:\n        - command: \"echo 'unterminated\"\n"},
		{"unknown runtime", "groups:\n  - type: cobol\n"},
		{"absolute directory", "groups:\n  - directory: /etc\n"},
		{"escaping directory", "groups:\n  - directory: ../other\n"},
		{"duplicate names", "groups:\n  - name: a\n  - name: a\n"},
		{"bad per-step timeout", "groups:\n  - hooks:\n      pre-commit:\n        - command: make\n          timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			if err := c.LoadFromFile(writeConfig(t, tt.content)); err != nil {
				t.Fatal(err)
			}
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_InvalidPatternIsNotFatal(t *testing.T) {
	c := New()
	content := "groups:\n  - hooks:\n      pre-commit:\n        - command: make\n          only_on: \"[a-\"\n"
	if err := c.LoadFromFile(writeConfig(t, content)); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("invalid only_on should fail the step at run time, not config loading: %v", err)
	}
}
