// Package queue maintains the windowed runway of candidates shown by the
// discovery feed.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kavirubc/cofound/pkg/models"
)

var (
	// ErrExhausted is returned by Current when every buffered candidate has
	// been consumed. It is not fatal: a later prefetch may refill the queue.
	ErrExhausted = errors.New("no more candidates")

	// ErrNoIdentity is returned by Initialize without a resolved user id
	ErrNoIdentity = errors.New("no user identity")

	// ErrClosed is returned after the queue has been torn down
	ErrClosed = errors.New("queue closed")

	// ErrAlreadyInitialized is returned by a second Initialize call
	ErrAlreadyInitialized = errors.New("queue already initialized")
)

// Fetcher retrieves recommended candidates for a user
type Fetcher interface {
	FetchCandidates(ctx context.Context, userID string, limit int) ([]models.Candidate, error)
}

// Identity resolves the user the queue fetches for
type Identity interface {
	UserID() string
}

// Options tunes batch sizes and the prefetch trigger
type Options struct {
	InitialBatch  int
	PrefetchBatch int
	LowWaterMark  int
	FetchTimeout  time.Duration
	Logger        *slog.Logger
}

// DefaultOptions returns the batch sizes used by the mobile feed
func DefaultOptions() Options {
	return Options{
		InitialBatch:  5,
		PrefetchBatch: 3,
		LowWaterMark:  2,
		FetchTimeout:  15 * time.Second,
	}
}

// State is a point-in-time view of the queue
type State struct {
	Cursor           int
	Len              int
	Remaining        int
	PrefetchInFlight bool
	Initialized      bool
	Closed           bool
}

// Manager owns the candidate buffer and its read cursor. All mutation goes
// through its methods; callers only ever see copies.
type Manager struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger

	// lifetime is cancelled by Close so in-flight fetches stop early
	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu               sync.Mutex
	userID           string
	buffer           []models.Candidate
	seen             map[string]struct{}
	cursor           int
	prefetchInFlight bool
	initialized      bool
	closed           bool
	prefetches       int
	listeners        []func(State)
}

// NewManager creates an empty queue. Unset batch sizes and timeout, and a
// negative LowWaterMark, fall back to DefaultOptions.
func NewManager(fetcher Fetcher, opts Options) *Manager {
	def := DefaultOptions()
	if opts.InitialBatch <= 0 {
		opts.InitialBatch = def.InitialBatch
	}
	if opts.PrefetchBatch <= 0 {
		opts.PrefetchBatch = def.PrefetchBatch
	}
	if opts.LowWaterMark < 0 {
		opts.LowWaterMark = def.LowWaterMark
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = def.FetchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Manager{
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger,
		lifetime: lifetime,
		cancel:   cancel,
		seen:     make(map[string]struct{}),
	}
}

// OnChange registers fn to be called after every state change. fn runs
// outside the queue's lock and may call back into the Manager.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Initialize fetches the initial batch for identity and resets the cursor.
// A fetch failure leaves an empty, usable queue and is returned so the
// caller can show a recoverable notice.
func (m *Manager) Initialize(ctx context.Context, identity Identity) error {
	if identity == nil || identity.UserID() == "" {
		return ErrNoIdentity
	}

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.initialized:
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.userID = identity.UserID()
	m.initialized = true
	m.cursor = 0
	// the initial fetch holds the single-flight guard so no prefetch can
	// land ahead of the first batch
	m.prefetchInFlight = true
	m.mu.Unlock()

	fetched, err := m.fetch(ctx, m.opts.InitialBatch)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.prefetchInFlight = false
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("initial_fetch_failed",
			slog.String("user_id", identity.UserID()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to load candidates: %w", err)
	}
	added := m.ingestLocked(fetched)
	state, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	m.logger.Debug("initial_fetch_completed",
		slog.Int("requested", m.opts.InitialBatch),
		slog.Int("received", len(fetched)),
		slog.Int("added", added))
	notify(listeners, state)
	return nil
}

// Current returns the candidate at the cursor, or ErrExhausted
func (m *Manager) Current() (models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return models.Candidate{}, ErrClosed
	}
	if m.cursor >= len(m.buffer) {
		return models.Candidate{}, ErrExhausted
	}
	return m.buffer[m.cursor], nil
}

// Upcoming returns up to n candidates starting at the cursor: the visible
// card stack, top card first.
func (m *Manager) Upcoming(n int) []models.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.cursor >= len(m.buffer) || n <= 0 {
		return nil
	}
	end := min(m.cursor+n, len(m.buffer))
	out := make([]models.Candidate, end-m.cursor)
	copy(out, m.buffer[m.cursor:end])
	return out
}

// Advance consumes the current candidate. It must be called exactly once
// per finalized decision. When the remaining runway drops to the low-water
// mark a prefetch is started unless one is already outstanding.
func (m *Manager) Advance() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.cursor >= len(m.buffer) {
		m.mu.Unlock()
		return ErrExhausted
	}
	m.cursor++
	lowWater := len(m.buffer)-m.cursor <= m.opts.LowWaterMark
	started := false
	if lowWater {
		started = m.startPrefetchLocked()
	}
	state, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	if started {
		m.logger.Debug("prefetch_triggered",
			slog.Int("cursor", state.Cursor),
			slog.Int("remaining", state.Remaining))
	}
	notify(listeners, state)
	return nil
}

// PrefetchMore requests another batch in the background. It reports
// whether a request was issued: false while one is already in flight or
// after Close.
func (m *Manager) PrefetchMore() bool {
	m.mu.Lock()
	started := m.startPrefetchLocked()
	state, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	if started {
		notify(listeners, state)
	}
	return started
}

// startPrefetchLocked sets the single-flight guard and spawns the fetch
func (m *Manager) startPrefetchLocked() bool {
	if m.closed || !m.initialized || m.prefetchInFlight {
		return false
	}
	m.prefetchInFlight = true
	m.prefetches++
	m.wg.Add(1)
	go m.prefetch()
	return true
}

func (m *Manager) prefetch() {
	defer m.wg.Done()

	fetched, err := m.fetch(m.lifetime, m.opts.PrefetchBatch)

	m.mu.Lock()
	if m.closed {
		// torn down while in flight: leave buffer and cursor alone
		m.mu.Unlock()
		return
	}
	m.prefetchInFlight = false
	added := 0
	if err == nil {
		added = m.ingestLocked(fetched)
	}
	state, listeners := m.snapshotLocked(), m.listenersLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("prefetch_failed", slog.String("error", err.Error()))
	} else {
		m.logger.Debug("prefetch_completed",
			slog.Int("received", len(fetched)),
			slog.Int("added", added),
			slog.Int("remaining", state.Remaining))
	}
	notify(listeners, state)
}

// fetch calls the backend with the configured timeout, bounded by both ctx
// and the queue's lifetime.
func (m *Manager) fetch(ctx context.Context, limit int) ([]models.Candidate, error) {
	m.mu.Lock()
	userID := m.userID
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.opts.FetchTimeout)
	defer cancel()
	stop := context.AfterFunc(m.lifetime, cancel)
	defer stop()

	return m.fetcher.FetchCandidates(ctx, userID, limit)
}

// ingestLocked appends candidates whose id has never been seen
func (m *Manager) ingestLocked(candidates []models.Candidate) int {
	added := 0
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		if _, dup := m.seen[c.ID]; dup {
			continue
		}
		m.seen[c.ID] = struct{}{}
		m.buffer = append(m.buffer, c)
		added++
	}
	return added
}

// Snapshot returns the current queue state
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Prefetches returns how many prefetch requests have been issued
func (m *Manager) Prefetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefetches
}

func (m *Manager) snapshotLocked() State {
	return State{
		Cursor:           m.cursor,
		Len:              len(m.buffer),
		Remaining:        len(m.buffer) - m.cursor,
		PrefetchInFlight: m.prefetchInFlight,
		Initialized:      m.initialized,
		Closed:           m.closed,
	}
}

func (m *Manager) listenersLocked() []func(State) {
	if len(m.listeners) == 0 {
		return nil
	}
	out := make([]func(State), len(m.listeners))
	copy(out, m.listeners)
	return out
}

// Wait blocks until no prefetch is running
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close tears the queue down. Results of fetches still in flight are
// discarded; buffer and cursor are frozen.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.listeners = nil
	m.mu.Unlock()

	m.cancel()
}

func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}
