package matcher

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sol-strategies/hookrunner/internal/step"
)

// Decision is what the matcher decided for a step.
type Decision int

const (
	Run Decision = iota
	Skip
	Invalid
)

func (d Decision) String() string {
	switch d {
	case Run:
		return "run"
	case Skip:
		return "skip"
	default:
		return "invalid"
	}
}

// ErrInvalidPattern is wrapped by every PatternError.
var ErrInvalidPattern = errors.New("invalid only_on pattern")

// PatternError names a malformed only_on pattern.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid `only_on` pattern: %s: %v", e.Pattern, doublestar.ErrBadPattern)
}

func (e *PatternError) Unwrap() []error {
	return []error{ErrInvalidPattern, doublestar.ErrBadPattern}
}

// Validate reports whether pattern is a well-formed glob.
func Validate(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return &PatternError{Pattern: pattern}
	}
	return nil
}

// ShouldRun decides whether cmd applies to the staged files of ectx. Steps
// without an only_on pattern always run. Otherwise staged files under the
// working directory are made relative to it and matched against the
// pattern; any match means Run.
func ShouldRun(cmd step.Command, ectx step.Context) (Decision, error) {
	if cmd.OnlyOn == "" {
		return Run, nil
	}
	if err := Validate(cmd.OnlyOn); err != nil {
		return Invalid, err
	}

	for _, rel := range RelativeTo(ectx.WorkingDirectory, ectx.StagedFiles) {
		// the pattern is already validated so Match cannot fail here
		if ok, _ := doublestar.Match(cmd.OnlyOn, rel); ok {
			return Run, nil
		}
	}
	return Skip, nil
}

// RelativeTo returns the files that live under dir, as forward-slash paths
// relative to dir. Order is preserved.
func RelativeTo(dir string, files []string) []string {
	base := cleanSlash(dir)
	var rels []string
	for _, f := range files {
		p := cleanSlash(f)
		if base == "." {
			if !path.IsAbs(p) && p != ".." && !strings.HasPrefix(p, "../") {
				rels = append(rels, p)
			}
			continue
		}
		prefix := strings.TrimSuffix(base, "/") + "/"
		if rel, ok := strings.CutPrefix(p, prefix); ok && rel != "" {
			rels = append(rels, rel)
		}
	}
	return rels
}

func cleanSlash(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
