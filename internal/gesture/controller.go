// Package gesture turns a drag on the top card, or a button press, into a
// single committed swipe decision.
package gesture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kavirubc/cofound/pkg/models"
)

var (
	// ErrBusy is returned when input arrives while another gesture or an
	// animation owns the card
	ErrBusy = errors.New("gesture in progress")

	// ErrNotDragging is returned by Move and Release outside a drag
	ErrNotDragging = errors.New("no active drag")

	// ErrNoCandidate is returned when a gesture starts without a card
	ErrNoCandidate = errors.New("no candidate bound")
)

// Phase of the gesture state machine
type Phase int

const (
	Idle Phase = iota
	Dragging
	Committing
	SpringingBack
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case SpringingBack:
		return "springingBack"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Options holds the swipe geometry
type Options struct {
	SwipeThreshold float64
	ScreenWidth    float64
	ScreenHeight   float64
	MaxRotation    float64
	ExitDuration   time.Duration
	// VerticalSuper lets an upward drag past the threshold super-accept
	VerticalSuper bool
	Logger        *slog.Logger
}

// DefaultOptions matches a 390x844 phone screen
func DefaultOptions() Options {
	return Options{
		SwipeThreshold: 120,
		ScreenWidth:    390,
		ScreenHeight:   844,
		MaxRotation:    10,
		ExitDuration:   300 * time.Millisecond,
	}
}

// State is what a renderer needs to draw the top card
type State struct {
	Phase        Phase
	CandidateID  string
	Displacement Point
	Transform    Transform
	// Pending is the decision being animated out, set while committing
	Pending *models.Decision
}

// FinalizeFunc receives each committed decision once its exit animation
// has completed
type FinalizeFunc func(models.Decision)

// Controller is the gesture state machine for the top card. It holds no
// timers of its own; the Animator reports when motions finish.
type Controller struct {
	opts     Options
	animator Animator
	finalize FinalizeFunc
	logger   *slog.Logger

	mu           sync.Mutex
	phase        Phase
	candidateID  string
	origin       Point
	displacement Point
	pending      *models.Decision
	// generation invalidates animator callbacks from earlier sessions
	generation uint64
	observers  []func(State)
}

// NewController creates an idle controller. A nil animator completes
// animations immediately.
func NewController(opts Options, animator Animator, finalize FinalizeFunc) *Controller {
	def := DefaultOptions()
	if opts.SwipeThreshold <= 0 {
		opts.SwipeThreshold = def.SwipeThreshold
	}
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = def.ScreenWidth
	}
	if opts.ScreenHeight <= 0 {
		opts.ScreenHeight = def.ScreenHeight
	}
	if opts.MaxRotation <= 0 {
		opts.MaxRotation = def.MaxRotation
	}
	if opts.ExitDuration <= 0 {
		opts.ExitDuration = def.ExitDuration
	}
	if animator == nil {
		animator = ImmediateAnimator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		opts:     opts,
		animator: animator,
		finalize: finalize,
		logger:   logger,
	}
}

// Options returns the effective geometry
func (c *Controller) Options() Options {
	return c.opts
}

// Subscribe registers fn to receive a State after every transition
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Begin starts a drag on candidateID at point p
func (c *Controller) Begin(candidateID string, p Point) error {
	if candidateID == "" {
		return ErrNoCandidate
	}

	c.mu.Lock()
	if c.phase != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.phase = Dragging
	c.candidateID = candidateID
	c.origin = p
	c.displacement = Point{}
	c.generation++
	state, observers := c.stateLocked(), c.observersLocked()
	c.mu.Unlock()

	publish(observers, state)
	return nil
}

// Move updates the drag displacement. The card preview follows it but
// nothing is committed until Release.
func (c *Controller) Move(p Point) error {
	c.mu.Lock()
	if c.phase != Dragging {
		c.mu.Unlock()
		return ErrNotDragging
	}
	c.displacement = p.Sub(c.origin)
	state, observers := c.stateLocked(), c.observersLocked()
	c.mu.Unlock()

	publish(observers, state)
	return nil
}

// Release ends the drag. Past the threshold the card exits and a decision
// is committed; otherwise it springs back.
func (c *Controller) Release() (Phase, error) {
	c.mu.Lock()
	if c.phase != Dragging {
		phase := c.phase
		c.mu.Unlock()
		return phase, ErrNotDragging
	}
	kind, ok := c.opts.Classify(c.displacement)
	if ok {
		return c.commitLocked(kind), nil
	}

	c.phase = SpringingBack
	from, gen := c.displacement, c.generation
	state, observers := c.stateLocked(), c.observersLocked()
	c.mu.Unlock()

	c.logger.Debug("swipe_cancelled",
		slog.String("candidate_id", state.CandidateID),
		slog.Float64("dx", from.X),
		slog.Float64("dy", from.Y))
	publish(observers, state)
	c.animator.SpringBack(from, func() { c.settle(gen) })
	return SpringingBack, nil
}

// Force commits kind on candidateID without a threshold check, as the
// action buttons do. It may interrupt a drag on the same candidate.
func (c *Controller) Force(candidateID string, kind models.DecisionKind) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid decision kind %d", int(kind))
	}
	if candidateID == "" {
		return ErrNoCandidate
	}

	c.mu.Lock()
	switch {
	case c.phase == Idle:
		c.candidateID = candidateID
		c.origin = Point{}
		c.displacement = Point{}
		c.generation++
	case c.phase == Dragging && c.candidateID == candidateID:
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	c.commitLocked(kind)
	return nil
}

// commitLocked enters the committing phase and starts the exit animation.
// It releases c.mu.
func (c *Controller) commitLocked(kind models.DecisionKind) Phase {
	d := models.NewDecision(kind, c.candidateID)
	c.phase = Committing
	c.pending = &d
	from, gen := c.displacement, c.generation
	to := c.opts.ExitTarget(kind, from)
	state, observers := c.stateLocked(), c.observersLocked()
	c.mu.Unlock()

	c.logger.Debug("swipe_committing",
		slog.String("candidate_id", d.CandidateID),
		slog.String("decision", kind.String()))
	publish(observers, state)
	c.animator.Exit(from, to, c.opts.ExitDuration, func() { c.settle(gen) })
	return Committing
}

// Settle completes the running animation. After an exit the decision is
// handed to the finalizer; after a spring-back nothing is recorded. It
// reports whether there was anything to settle.
func (c *Controller) Settle() bool {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	return c.settle(gen)
}

// settle returns to idle only after the finalizer has run, so no new
// gesture can bind to a candidate that is about to be consumed.
func (c *Controller) settle(gen uint64) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	switch c.phase {
	case SpringingBack:
	case Committing:
		if c.pending == nil {
			// already finalizing
			c.mu.Unlock()
			return false
		}
		decision := *c.pending
		c.pending = nil
		c.mu.Unlock()

		if c.finalize != nil {
			c.finalize(decision)
		}
		c.mu.Lock()
	default:
		c.mu.Unlock()
		return false
	}
	c.phase = Idle
	c.candidateID = ""
	c.displacement = Point{}
	state, observers := c.stateLocked(), c.observersLocked()
	c.mu.Unlock()

	publish(observers, state)
	return true
}

func (c *Controller) stateLocked() State {
	s := State{
		Phase:        c.phase,
		CandidateID:  c.candidateID,
		Displacement: c.displacement,
		Transform:    c.opts.TransformFor(c.displacement),
	}
	if c.pending != nil {
		d := *c.pending
		s.Pending = &d
	}
	return s
}

func (c *Controller) observersLocked() []func(State) {
	if len(c.observers) == 0 {
		return nil
	}
	out := make([]func(State), len(c.observers))
	copy(out, c.observers)
	return out
}

func publish(observers []func(State), state State) {
	for _, fn := range observers {
		fn(state)
	}
}
