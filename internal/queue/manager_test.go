package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavirubc/cofound/pkg/models"
)

type identity string

func (i identity) UserID() string { return string(i) }

type fetchCall struct {
	userID string
	limit  int
}

// scriptedFetcher replays canned responses in order. When gate is set,
// every call blocks until a value is sent on it or ctx ends.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses [][]models.Candidate
	errs      []error
	calls     []fetchCall
	gate      chan struct{}
}

func (f *scriptedFetcher) FetchCandidates(ctx context.Context, userID string, limit int) ([]models.Candidate, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, fetchCall{userID: userID, limit: limit})
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return nil, nil
}

func (f *scriptedFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fetchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func candidates(ids ...int) []models.Candidate {
	out := make([]models.Candidate, len(ids))
	for i, id := range ids {
		out[i] = models.Candidate{ID: fmt.Sprint(id), Fields: map[string]any{"name": fmt.Sprintf("Candidate %d", id)}}
	}
	return out
}

func ids(cs []models.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func newTestManager(f Fetcher) *Manager {
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(f, opts)
}

func TestManager_Initialize(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3, 4, 5)}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))

	cur, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "1", cur.ID)
	assert.Equal(t, State{Cursor: 0, Len: 5, Remaining: 5, Initialized: true}, m.Snapshot())
	assert.Equal(t, []fetchCall{{userID: "u-1", limit: 5}}, f.Calls())
	assert.Equal(t, []string{"1", "2"}, ids(m.Upcoming(2)))
}

func TestManager_Initialize_NoIdentity(t *testing.T) {
	f := &scriptedFetcher{}
	m := newTestManager(f)
	defer m.Close()

	assert.ErrorIs(t, m.Initialize(context.Background(), identity("")), ErrNoIdentity)
	assert.ErrorIs(t, m.Initialize(context.Background(), nil), ErrNoIdentity)
	assert.Empty(t, f.Calls(), "no fetch without identity")
}

func TestManager_Initialize_FailureIsRecoverable(t *testing.T) {
	f := &scriptedFetcher{
		errs:      []error{errors.New("backend down")},
		responses: [][]models.Candidate{nil, candidates(7, 8)},
	}
	m := newTestManager(f)
	defer m.Close()

	err := m.Initialize(context.Background(), identity("u-1"))
	require.Error(t, err)

	_, err = m.Current()
	assert.ErrorIs(t, err, ErrExhausted)

	// The queue stays usable: a manual refill recovers
	require.True(t, m.PrefetchMore())
	m.Wait()

	cur, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "7", cur.ID)
}

func TestManager_Initialize_Twice(t *testing.T) {
	m := newTestManager(&scriptedFetcher{})
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	assert.ErrorIs(t, m.Initialize(context.Background(), identity("u-1")), ErrAlreadyInitialized)
}

func TestManager_NoPrefetchDuringInitialFetch(t *testing.T) {
	f := &scriptedFetcher{
		responses: [][]models.Candidate{candidates(1, 2, 3, 4, 5), candidates(5, 6, 7)},
		gate:      make(chan struct{}),
	}
	m := newTestManager(f)
	defer m.Close()

	done := make(chan error, 1)
	go func() { done <- m.Initialize(context.Background(), identity("u-1")) }()

	require.Eventually(t, func() bool { return len(f.Calls()) == 1 }, time.Second, time.Millisecond)
	assert.True(t, m.Snapshot().PrefetchInFlight)
	assert.False(t, m.PrefetchMore(), "refill must wait for the initial batch")

	f.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.False(t, m.Snapshot().PrefetchInFlight)

	f.mu.Lock()
	f.gate = nil
	f.mu.Unlock()

	require.True(t, m.PrefetchMore())
	m.Wait()

	assert.Len(t, f.Calls(), 2)
	all := m.Upcoming(10)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7"}, ids(all))
}

func TestManager_DedupOnIngest(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{
		candidates(1, 2, 2, 3),
		candidates(3, 1, 4),
		candidates(4, 5, 5, 2),
	}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	require.True(t, m.PrefetchMore())
	m.Wait()
	require.True(t, m.PrefetchMore())
	m.Wait()

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(m.Upcoming(10)))

	seen := map[string]bool{}
	for _, c := range m.Upcoming(10) {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestManager_DedupAgainstConsumedCandidates(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3, 4, 5, 6), candidates(1, 2, 7)}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	for i := 0; i < 4; i++ {
		require.NoError(t, m.Advance())
	}
	m.Wait()

	// 1 and 2 were already shown; only 7 is new
	assert.Equal(t, []string{"5", "6", "7"}, ids(m.Upcoming(10)))
}

func TestManager_CursorMonotonic(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3), candidates(4), candidates()}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))

	last := m.Snapshot().Cursor
	for i := 0; i < 10; i++ {
		_ = m.Advance()
		m.Wait()
		cur := m.Snapshot()
		assert.GreaterOrEqual(t, cur.Cursor, last)
		assert.LessOrEqual(t, cur.Cursor, cur.Len)
		last = cur.Cursor
	}
	assert.Equal(t, 4, last)
}

func TestManager_SingleFlightPrefetch(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3, 4, 5), candidates(6, 7, 8)}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))

	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()

	require.True(t, m.PrefetchMore())
	assert.True(t, m.Snapshot().PrefetchInFlight)
	assert.False(t, m.PrefetchMore(), "second prefetch must not issue a request")
	assert.False(t, m.PrefetchMore())

	// Advances while in flight still move the cursor
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())
	assert.Equal(t, 3, m.Snapshot().Cursor)

	f.gate <- struct{}{}
	m.Wait()

	assert.Len(t, f.Calls(), 2)
	assert.False(t, m.Snapshot().PrefetchInFlight)
	assert.Equal(t, 8, m.Snapshot().Len)
}

func TestManager_PrefetchFailureClearsGuard(t *testing.T) {
	f := &scriptedFetcher{
		responses: [][]models.Candidate{candidates(1, 2), nil, candidates(3)},
		errs:      []error{nil, errors.New("timeout")},
	}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	require.True(t, m.PrefetchMore())
	m.Wait()

	assert.False(t, m.Snapshot().PrefetchInFlight)
	assert.Equal(t, 2, m.Snapshot().Len, "failed prefetch does not grow the buffer")

	require.True(t, m.PrefetchMore(), "guard must not stay wedged after a failure")
	m.Wait()
	assert.Equal(t, 3, m.Snapshot().Len)
}

func TestManager_StarvationAvoidance(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3, 4, 5), candidates(6, 7, 8)}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))

	require.NoError(t, m.Advance())
	require.NoError(t, m.Advance())
	m.Wait()
	assert.Equal(t, 0, m.Prefetches(), "remaining 3 is above the low-water mark")

	require.NoError(t, m.Advance())
	m.Wait()

	assert.Equal(t, 1, m.Prefetches())
	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, fetchCall{userID: "u-1", limit: 3}, calls[1])

	state := m.Snapshot()
	assert.Equal(t, 3, state.Cursor)
	assert.Equal(t, 8, state.Len)
	assert.False(t, state.PrefetchInFlight)
}

func TestManager_ExhaustionAndRecovery(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2), candidates(), candidates(), candidates(3, 4, 5)}}
	m := newTestManager(f)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	require.NoError(t, m.Advance())
	m.Wait()
	require.NoError(t, m.Advance())
	m.Wait()

	assert.Equal(t, 2, m.Snapshot().Cursor)
	_, err := m.Current()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, m.Advance(), ErrExhausted)
	assert.Equal(t, 2, m.Snapshot().Cursor)

	require.True(t, m.PrefetchMore())
	m.Wait()

	cur, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "3", cur.ID)
}

func TestManager_TeardownSafety(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3), candidates(4, 5, 6)}}
	m := newTestManager(f)

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))

	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()

	require.True(t, m.PrefetchMore())
	before := m.Snapshot()

	m.Close()
	m.Wait()

	after := m.Snapshot()
	assert.Equal(t, before.Cursor, after.Cursor)
	assert.Equal(t, before.Len, after.Len)
	assert.True(t, after.Closed)

	_, err := m.Current()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Advance(), ErrClosed)
	assert.False(t, m.PrefetchMore())
}

// lateFetcher ignores cancellation and resolves after the queue is gone
type lateFetcher struct {
	release chan struct{}
	first   bool
}

func (f *lateFetcher) FetchCandidates(ctx context.Context, userID string, limit int) ([]models.Candidate, error) {
	if !f.first {
		f.first = true
		return candidates(1, 2), nil
	}
	<-f.release
	return candidates(10, 11, 12), nil
}

func TestManager_TeardownIgnoresLateResult(t *testing.T) {
	f := &lateFetcher{release: make(chan struct{})}
	m := newTestManager(f)

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	require.True(t, m.PrefetchMore())

	var changes int
	var mu sync.Mutex
	m.OnChange(func(State) {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	m.Close()
	close(f.release)
	m.Wait()

	assert.Equal(t, 2, m.Snapshot().Len)
	assert.Equal(t, 0, m.Snapshot().Cursor)
	mu.Lock()
	assert.Zero(t, changes, "no notifications after teardown")
	mu.Unlock()
}

func TestManager_FetchTimeout(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1)}}
	opts := DefaultOptions()
	opts.FetchTimeout = 20 * time.Millisecond
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(f, opts)
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))

	f.mu.Lock()
	f.gate = make(chan struct{}) // never released
	f.mu.Unlock()

	require.True(t, m.PrefetchMore())
	m.Wait()
	assert.False(t, m.Snapshot().PrefetchInFlight, "a hung fetch must not wedge the guard")
}

func TestManager_OnChange(t *testing.T) {
	f := &scriptedFetcher{responses: [][]models.Candidate{candidates(1, 2, 3, 4, 5)}}
	m := newTestManager(f)
	defer m.Close()

	var states []State
	m.OnChange(func(s State) { states = append(states, s) })

	require.NoError(t, m.Initialize(context.Background(), identity("u-1")))
	require.NoError(t, m.Advance())

	require.Len(t, states, 2)
	assert.Equal(t, 5, states[0].Len)
	assert.Equal(t, 1, states[1].Cursor)
}
