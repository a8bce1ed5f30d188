package constants

import "slices"

const (
	HookPreCommit        = "pre-commit"
	HookPrepareCommitMsg = "prepare-commit-msg"
	HookCommitMsg        = "commit-msg"
	HookPostCommit       = "post-commit"
	HookPostMerge        = "post-merge"
	HookPostCheckout     = "post-checkout"
	HookPreRebase        = "pre-rebase"
	HookPrePush          = "pre-push"
)

const (
	RuntimePython = "python"
)

const (
	EnvArgs          = "HOOKRUNNER_ARGS"
	EnvStagedFiles   = "HOOKRUNNER_STAGED_FILES"
	EnvProjectConfig = "HOOKRUNNER_PROJECT_CONFIG"
)

var (
	ValidHookTypes = []string{
		HookPreCommit,
		HookPrepareCommitMsg,
		HookCommitMsg,
		HookPostCommit,
		HookPostMerge,
		HookPostCheckout,
		HookPreRebase,
		HookPrePush,
	}

	ValidRuntimeKinds = []string{RuntimePython}

	deactivateCommands = map[string]string{
		RuntimePython: "deactivate",
	}
)

func IsValidHookType(name string) bool {
	return slices.Contains(ValidHookTypes, name)
}

func IsValidRuntimeKind(kind string) bool {
	return slices.Contains(ValidRuntimeKinds, kind)
}

// RequiresActivation reports whether commands for kind are wrapped in an
// activation script.
func RequiresActivation(kind string) bool {
	_, ok := deactivateCommands[kind]
	return ok
}

func DeactivateCommand(kind string) string {
	return deactivateCommands[kind]
}
