package reporter

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sol-strategies/hookrunner/internal/step"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Render(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestStep_Transitions(t *testing.T) {
	rec := &recorder{}
	s := New("lint", rec, WithInterval(0))

	if s.State() != StatePending {
		t.Fatalf("expected pending, got %s", s.State())
	}
	if err := s.Update("Running"); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateRunning {
		t.Fatalf("expected running, got %s", s.State())
	}
	if err := s.Resolve(step.StatusSucceeded, ""); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateResolved {
		t.Fatalf("expected resolved, got %s", s.State())
	}

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].State != StateRunning || events[0].Message != "Running" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].State != StateResolved || events[1].Status != step.StatusSucceeded {
		t.Errorf("unexpected last event %+v", events[1])
	}
}

func TestStep_ResolvedIsTerminal(t *testing.T) {
	rec := &recorder{}
	s := New("lint", rec, WithInterval(0))
	s.Update("Running")
	s.Resolve(step.StatusFailed, "")

	if err := s.Update("again"); !errors.Is(err, ErrResolved) {
		t.Errorf("expected ErrResolved from Update, got %v", err)
	}
	if err := s.Resolve(step.StatusSucceeded, ""); !errors.Is(err, ErrResolved) {
		t.Errorf("expected ErrResolved from Resolve, got %v", err)
	}
	if n := len(rec.snapshot()); n != 2 {
		t.Errorf("expected no events after resolve, got %d total", n)
	}
}

func TestStep_ResolveWhilePending(t *testing.T) {
	s := New("lint", &recorder{}, WithInterval(0))
	if err := s.Resolve(step.StatusSucceeded, ""); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if s.State() != StatePending {
		t.Errorf("expected state to stay pending, got %s", s.State())
	}
}

func TestStep_TickerStopsAtResolve(t *testing.T) {
	rec := &recorder{}
	s := New("lint", rec, WithInterval(time.Millisecond))
	s.Update("Running")
	time.Sleep(20 * time.Millisecond)
	s.Resolve(step.StatusSucceeded, "")

	before := rec.snapshot()
	time.Sleep(20 * time.Millisecond)
	after := rec.snapshot()

	if len(after) != len(before) {
		t.Fatalf("events rendered after resolve: %d -> %d", len(before), len(after))
	}
	if len(after) < 3 {
		t.Errorf("expected tick events while running, got %d events", len(after))
	}
	last := after[len(after)-1]
	if last.State != StateResolved {
		t.Errorf("last event should be resolved, got %s", last.State)
	}
	for _, e := range after[:len(after)-1] {
		if e.State != StateRunning {
			t.Errorf("unexpected %s event before resolution", e.State)
		}
	}
}

func TestPlain_OneLinePerResolution(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	s := New("format", p, WithInterval(time.Millisecond))
	s.Update("Running")
	time.Sleep(5 * time.Millisecond)
	s.Resolve(step.StatusSkipped, SkipMessage("*.go"))

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}
	if !strings.Contains(out, "⏩ Skipped.") || !strings.Contains(out, `no match with "*.go"`) {
		t.Errorf("unexpected skip line %q", out)
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		status step.Status
		want   string
	}{
		{step.StatusSucceeded, "✅ Done."},
		{step.StatusFailed, "❌ Error."},
		{step.StatusSkipped, "⏩ Skipped."},
	}
	for _, tt := range tests {
		if got := Glyph(tt.status); got != tt.want {
			t.Errorf("Glyph(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestTerminal_Lines(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	a := New("lint", term.Line("lint"), WithInterval(0))
	b := New("test", term.Line("test"), WithInterval(0))

	a.Update("Running")
	b.Update("Running")
	a.Resolve(step.StatusSucceeded, "")
	b.Resolve(step.StatusFailed, "")

	out := buf.String()
	for _, want := range []string{"lint", "test", "✅ Done.", "❌ Error.", "2/2"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q", want)
		}
	}
}
