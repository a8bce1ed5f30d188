package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/sol-strategies/hookrunner/internal/step"
)

var (
	nameStyle    = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	spinStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	frames = spinner.MiniDot.Frames
)

// SkipMessage is the resolution message for a step whose pattern matched
// no staged file.
func SkipMessage(pattern string) string {
	return fmt.Sprintf("no match with %q", pattern)
}

// Glyph returns the resolution text for status.
func Glyph(status step.Status) string {
	switch status {
	case step.StatusSucceeded:
		return "✅ Done."
	case step.StatusFailed:
		return "❌ Error."
	case step.StatusSkipped:
		return "⏩ Skipped."
	default:
		return "?"
	}
}

// Line formats an event as a single display line.
func Line(e Event) string {
	name := nameStyle.Render(e.Name)
	switch e.State {
	case StateRunning:
		frame := spinStyle.Render(frames[e.Frame%len(frames)])
		return fmt.Sprintf("%s %s %s %s", frame, name, e.Message, faintStyle.Render(e.Elapsed.Round(100*time.Millisecond).String()))
	case StateResolved:
		var glyph string
		switch e.Status {
		case step.StatusSucceeded:
			glyph = successStyle.Render(Glyph(e.Status))
		case step.StatusFailed:
			glyph = failureStyle.Render(Glyph(e.Status))
		default:
			glyph = skipStyle.Render(Glyph(e.Status))
		}
		line := fmt.Sprintf("%s %s", name, glyph)
		if e.Message != "" {
			line += " (" + e.Message + ")"
		}
		if e.Status != step.StatusSkipped && e.Elapsed > 0 {
			line += " " + faintStyle.Render(e.Elapsed.Round(time.Millisecond).String())
		}
		return line
	default:
		return fmt.Sprintf("  %s %s", name, faintStyle.Render("pending"))
	}
}

// Plain writes one line per resolved step and ignores running frames.
type Plain struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) Render(e Event) {
	if e.State != StateResolved {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, Line(e))
}

// Terminal redraws a block of step lines in place, followed by a progress
// bar of resolved steps. It assumes nothing else writes to out while active.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	lines    []string
	resolved []bool
	drawn    int
	bar      progress.Model
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out: out,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

// Line reserves a display line for the named step and returns the
// renderer bound to it.
func (t *Terminal) Line(name string) Renderer {
	t.mu.Lock()
	idx := len(t.lines)
	t.lines = append(t.lines, Line(Event{Name: name}))
	t.resolved = append(t.resolved, false)
	t.mu.Unlock()

	return RendererFunc(func(e Event) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.lines[idx] = Line(e)
		if e.State == StateResolved {
			t.resolved[idx] = true
		}
		t.redrawLocked()
	})
}

func (t *Terminal) redrawLocked() {
	var b strings.Builder
	if t.drawn > 0 {
		fmt.Fprintf(&b, "\033[%dA", t.drawn)
	}
	for _, l := range t.lines {
		b.WriteString("\r\033[2K")
		b.WriteString(l)
		b.WriteString("\n")
	}

	done := 0
	for _, r := range t.resolved {
		if r {
			done++
		}
	}
	pct := 0.0
	if len(t.lines) > 0 {
		pct = float64(done) / float64(len(t.lines))
	}
	fmt.Fprintf(&b, "\r\033[2K  %s %d/%d\n", t.bar.ViewAs(pct), done, len(t.lines))

	t.drawn = len(t.lines) + 1
	io.WriteString(t.out, b.String())
}
