// Package reporter tracks the display state of a running step.
//
// A Step moves Pending -> Running -> Resolved exactly once and emits an
// Event to its Renderer on every transition. While Running, a ticker emits
// frame events so spinners can animate. The ticker is stopped and joined
// before the resolved event is emitted, so no running frame is ever rendered
// after resolution.
package reporter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/log"

	"github.com/sol-strategies/hookrunner/internal/step"
)

func logger() *log.Logger { return log.Default().WithPrefix("reporter") }

var (
	ErrResolved   = errors.New("step already resolved")
	ErrNotRunning = errors.New("step is not running")
)

// State is the display state of a step.
type State int

const (
	StatePending State = iota
	StateRunning
	StateResolved
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is emitted to a Renderer on transitions and ticks.
type Event struct {
	Name    string
	State   State
	Status  step.Status // only set when State is StateResolved
	Message string
	Frame   int
	Elapsed time.Duration
}

// Renderer draws events. Implementations must be safe for concurrent use
// when shared between steps.
type Renderer interface {
	Render(Event)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Event)

func (f RendererFunc) Render(e Event) { f(e) }

// Option configures a Step.
type Option func(*Step)

// WithInterval sets the tick interval while running. Zero disables ticking.
func WithInterval(d time.Duration) Option {
	return func(s *Step) { s.interval = d }
}

// Step is the progress state machine of one step execution.
type Step struct {
	name     string
	renderer Renderer
	interval time.Duration

	mu      sync.Mutex
	state   State
	message string
	frame   int
	started time.Time
	stop    chan struct{}
	done    chan struct{}
}

// New returns a pending Step rendering to r.
func New(name string, r Renderer, opts ...Option) *Step {
	s := &Step{
		name:     name,
		renderer: r,
		interval: spinner.MiniDot.FPS,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Step) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update sets the running message. The first call moves the step from
// Pending to Running and starts the ticker.
func (s *Step) Update(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateResolved:
		logger().Debug("update after resolve", "step", s.name, "message", message)
		return fmt.Errorf("updating %q: %w", s.name, ErrResolved)
	case StatePending:
		s.state = StateRunning
		s.started = time.Now()
		if s.interval > 0 {
			s.stop = make(chan struct{})
			s.done = make(chan struct{})
			go s.tick(s.stop, s.done)
		}
	}

	s.message = message
	s.renderer.Render(s.eventLocked())
	return nil
}

// Resolve moves a Running step to Resolved. The ticker is stopped before
// the resolved event is rendered.
func (s *Step) Resolve(status step.Status, message string) error {
	s.mu.Lock()
	switch s.state {
	case StateResolved:
		s.mu.Unlock()
		logger().Debug("resolve after resolve", "step", s.name, "status", status)
		return fmt.Errorf("resolving %q: %w", s.name, ErrResolved)
	case StatePending:
		s.mu.Unlock()
		return fmt.Errorf("resolving %q: %w", s.name, ErrNotRunning)
	}

	s.state = StateResolved
	s.message = message
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	ev := s.eventLocked()
	ev.Status = status
	s.renderer.Render(ev)
	s.mu.Unlock()
	return nil
}

func (s *Step) tick(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateRunning {
				s.mu.Unlock()
				return
			}
			s.frame++
			s.renderer.Render(s.eventLocked())
			s.mu.Unlock()
		case <-stop:
			return
		}
	}
}

func (s *Step) eventLocked() Event {
	var elapsed time.Duration
	if !s.started.IsZero() {
		elapsed = time.Since(s.started)
	}
	return Event{
		Name:    s.name,
		State:   s.state,
		Message: s.message,
		Frame:   s.frame,
		Elapsed: elapsed,
	}
}
