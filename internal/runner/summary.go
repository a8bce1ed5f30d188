package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sol-strategies/hookrunner/internal/step"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196")).Padding(0, 1)
	totalStyle  = lipgloss.NewStyle().Faint(true)
)

// GroupResult holds the results of one group, in step order.
type GroupResult struct {
	Name      string
	Directory string
	Results   []step.Result
}

// Summary aggregates all results of a hook run.
type Summary struct {
	Hook     string
	Groups   []GroupResult
	Duration time.Duration
}

func (s *Summary) Counts() (succeeded, skipped, failed int) {
	for _, g := range s.Groups {
		for _, r := range g.Results {
			switch r.Status {
			case step.StatusSucceeded:
				succeeded++
			case step.StatusSkipped:
				skipped++
			case step.StatusFailed:
				failed++
			}
		}
	}
	return succeeded, skipped, failed
}

func (s *Summary) Failed() bool {
	_, _, failed := s.Counts()
	return failed > 0
}

// ExitCode is 0 when every step succeeded or was skipped.
func (s *Summary) ExitCode() int {
	if s.Failed() {
		return 1
	}
	return 0
}

// PrintFailures writes the diagnostic of every failed step to w, followed
// by a totals line.
func PrintFailures(w io.Writer, s *Summary) {
	for _, g := range s.Groups {
		for _, r := range g.Results {
			if !r.Failed() {
				continue
			}
			fmt.Fprintf(w, "\n%s\n", headerStyle.Render(fmt.Sprintf("%s › %s", g.Name, r.Step.Name)))
			fmt.Fprintln(w, strings.TrimRight(r.Diagnostic, "\n"))
		}
	}

	succeeded, skipped, failed := s.Counts()
	if succeeded+skipped+failed == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", totalStyle.Render(fmt.Sprintf("%d succeeded, %d skipped, %d failed in %s",
		succeeded, skipped, failed, s.Duration.Round(time.Millisecond))))
}
