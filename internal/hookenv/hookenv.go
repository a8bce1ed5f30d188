// Package hookenv reads the environment channel set up by the git hook
// scripts. It is read once, before any step runs, and the resulting Env is
// passed explicitly to whoever needs it.
package hookenv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sol-strategies/hookrunner/internal/constants"
)

var (
	ErrMissingArgs = fmt.Errorf("%s is not set", constants.EnvArgs)
	errInvalidJSON = errors.New("invalid JSON")
)

// Env is a read-only snapshot of the hook environment.
type Env struct {
	Args []string
	// StagedFiles is nil when the channel was not set, in which case the
	// caller is expected to ask git.
	StagedFiles   []string
	ProjectConfig json.RawMessage
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the hook environment. A missing args channel is a contract
// violation unless argsOverride is non-nil.
func Load(lookup LookupFunc, argsOverride *string) (*Env, error) {
	env := &Env{}

	rawArgs, ok := lookup(constants.EnvArgs)
	if argsOverride != nil {
		rawArgs, ok = *argsOverride, true
	}
	if !ok {
		return nil, ErrMissingArgs
	}
	env.Args = strings.Fields(rawArgs)

	if raw, ok := lookup(constants.EnvStagedFiles); ok && strings.TrimSpace(raw) != "" {
		files := []string{}
		if err := json.Unmarshal([]byte(raw), &files); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", constants.EnvStagedFiles, err)
		}
		env.StagedFiles = files
	}

	if raw, ok := lookup(constants.EnvProjectConfig); ok && strings.TrimSpace(raw) != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("decoding %s: %w", constants.EnvProjectConfig, errInvalidJSON)
		}
		env.ProjectConfig = json.RawMessage(raw)
	}

	return env, nil
}

// Environ renders the snapshot as KEY=VALUE pairs for child processes.
// stagedFiles is the final list the run uses, which may come from git
// rather than the environment.
func (e *Env) Environ(stagedFiles []string) ([]string, error) {
	if stagedFiles == nil {
		stagedFiles = []string{}
	}
	staged, err := json.Marshal(stagedFiles)
	if err != nil {
		return nil, fmt.Errorf("encoding staged files: %w", err)
	}
	vars := []string{
		constants.EnvArgs + "=" + strings.Join(e.Args, " "),
		constants.EnvStagedFiles + "=" + string(staged),
	}
	if len(e.ProjectConfig) > 0 {
		vars = append(vars, constants.EnvProjectConfig+"="+string(e.ProjectConfig))
	}
	return vars, nil
}
