package gesture

import (
	"sync"
	"time"
)

// Animator plays the card's exit and spring-back motions. Implementations
// must call done exactly once when the motion has finished.
type Animator interface {
	Exit(from, to Point, duration time.Duration, done func())
	SpringBack(from Point, done func())
}

// ImmediateAnimator completes every animation synchronously
type ImmediateAnimator struct{}

func (ImmediateAnimator) Exit(_, _ Point, _ time.Duration, done func()) { done() }

func (ImmediateAnimator) SpringBack(_ Point, done func()) { done() }

// ManualAnimator records animations and completes them only when Finish is
// called. Useful to observe the committing and springingBack phases.
type ManualAnimator struct {
	mu      sync.Mutex
	pending []func()
}

func (a *ManualAnimator) Exit(_, _ Point, _ time.Duration, done func()) { a.push(done) }

func (a *ManualAnimator) SpringBack(_ Point, done func()) { a.push(done) }

func (a *ManualAnimator) push(done func()) {
	a.mu.Lock()
	a.pending = append(a.pending, done)
	a.mu.Unlock()
}

// Pending returns the number of unfinished animations
func (a *ManualAnimator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Finish completes the oldest pending animation. It reports false when
// nothing is running.
func (a *ManualAnimator) Finish() bool {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return false
	}
	done := a.pending[0]
	a.pending = a.pending[1:]
	a.mu.Unlock()

	done()
	return true
}

// TimerAnimator completes animations in real time on timer goroutines
type TimerAnimator struct {
	SpringDuration time.Duration

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
}

// NewTimerAnimator creates an animator whose spring-back lasts springDuration
func NewTimerAnimator(springDuration time.Duration) *TimerAnimator {
	return &TimerAnimator{
		SpringDuration: springDuration,
		timers:         make(map[*time.Timer]struct{}),
	}
}

func (a *TimerAnimator) Exit(_, _ Point, duration time.Duration, done func()) {
	a.after(duration, done)
}

func (a *TimerAnimator) SpringBack(_ Point, done func()) {
	a.after(a.SpringDuration, done)
}

func (a *TimerAnimator) after(d time.Duration, done func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		a.mu.Lock()
		_, live := a.timers[t]
		delete(a.timers, t)
		a.mu.Unlock()
		if live {
			done()
		}
	})
	a.timers[t] = struct{}{}
}

// Stop cancels every running animation. Their callbacks never fire.
func (a *TimerAnimator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for t := range a.timers {
		t.Stop()
	}
	clear(a.timers)
}
