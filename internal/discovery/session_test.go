package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavirubc/cofound/internal/gesture"
	"github.com/Kavirubc/cofound/internal/outbox"
	"github.com/Kavirubc/cofound/internal/queue"
	"github.com/Kavirubc/cofound/internal/recommend"
	"github.com/Kavirubc/cofound/pkg/models"
)

type identity string

func (i identity) UserID() string { return string(i) }

// pagedFetcher hands out sequential candidate ids
type pagedFetcher struct {
	mu   sync.Mutex
	next int
	max  int
}

func (f *pagedFetcher) FetchCandidates(_ context.Context, _ string, limit int) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Candidate
	for i := 0; i < limit && f.next < f.max; i++ {
		f.next++
		out = append(out, models.Candidate{ID: fmt.Sprintf("c-%d", f.next)})
	}
	return out, nil
}

type submission struct {
	userID string
	target string
	kind   models.DecisionKind
}

type fakeSubmitter struct {
	mu    sync.Mutex
	err   error
	gate  chan struct{}
	calls []submission
}

func (s *fakeSubmitter) SubmitDecision(ctx context.Context, userID, targetID string, kind models.DecisionKind) (*recommend.SwipeAck, error) {
	s.mu.Lock()
	s.calls = append(s.calls, submission{userID: userID, target: targetID, kind: kind})
	gate, err := s.gate, s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &recommend.SwipeAck{Message: "Swipe recorded", Decision: kind}, nil
}

func (s *fakeSubmitter) Calls() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, total int, sub Submitter, opts Options) *Session {
	t.Helper()
	qopts := queue.DefaultOptions()
	qopts.Logger = discardLogger()
	q := queue.NewManager(&pagedFetcher{max: total}, qopts)

	opts.Logger = discardLogger()
	s := New(q, sub, opts)
	t.Cleanup(s.Close)
	require.NoError(t, s.Start(context.Background(), identity("u-1")))
	return s
}

func waitSubmissions(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func swipeDrag(t *testing.T, s *Session, dx float64) gesture.Phase {
	t.Helper()
	require.NoError(t, s.PointerDown(gesture.Point{X: 200, Y: 400}))
	require.NoError(t, s.PointerMove(gesture.Point{X: 200 + dx, Y: 410}))
	phase, err := s.PointerUp()
	require.NoError(t, err)
	return phase
}

func TestSession_DragCommitAdvancesAndSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, 10, sub, Options{})

	assert.Equal(t, gesture.Committing, swipeDrag(t, s, 150))
	waitSubmissions(t, s)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "c-2", cur.ID)
	assert.Equal(t, []submission{{userID: "u-1", target: "c-1", kind: models.Accept}}, sub.Calls())

	res := <-s.Submissions()
	assert.NoError(t, res.Err)
	assert.Equal(t, "c-1", res.Decision.CandidateID)
	assert.True(t, res.Decision.Committed)
}

func TestSession_SpringBackRecordsNothing(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, 10, sub, Options{})

	assert.Equal(t, gesture.SpringingBack, swipeDrag(t, s, 119))
	waitSubmissions(t, s)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "c-1", cur.ID)
	assert.Empty(t, sub.Calls())
	summary := s.Summary()
	assert.Zero(t, summary.Total())
}

func TestSession_ButtonsShareCommitPath(t *testing.T) {
	sub := &fakeSubmitter{}
	anim := &gesture.ManualAnimator{}
	s := newTestSession(t, 10, sub, Options{Animator: anim})

	require.NoError(t, s.Swipe(models.SuperAccept))
	assert.Equal(t, gesture.Committing, s.Gesture().State().Phase)

	// the card is still on top until the exit animation completes
	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "c-1", cur.ID)
	assert.ErrorIs(t, s.Swipe(models.Reject), gesture.ErrBusy)

	require.True(t, anim.Finish())
	waitSubmissions(t, s)

	cur, err = s.Current()
	require.NoError(t, err)
	assert.Equal(t, "c-2", cur.ID)
	assert.Equal(t, []submission{{userID: "u-1", target: "c-1", kind: models.SuperAccept}}, sub.Calls())
}

func TestSession_FailureDoesNotRollBack(t *testing.T) {
	sub := &fakeSubmitter{err: &recommend.APIError{Status: http.StatusInternalServerError, Message: "boom"}}
	s := newTestSession(t, 10, sub, Options{})

	require.NoError(t, s.Swipe(models.Reject))
	waitSubmissions(t, s)

	res := <-s.Submissions()
	assert.Error(t, res.Err)
	assert.False(t, res.Queued, "no outbox configured")

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "c-2", cur.ID)

	sum := s.Summary()
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 1, sum.SubmitFailed)
}

func TestSession_RetryableFailureGoesToOutbox(t *testing.T) {
	ob := outbox.New(outbox.NewMemoryStore(), outbox.Options{Logger: discardLogger()})

	tests := []struct {
		name   string
		err    error
		queued bool
	}{
		{name: "network", err: &recommend.APIError{Status: recommend.StatusNetwork, Message: "dial tcp"}, queued: true},
		{name: "server error", err: &recommend.APIError{Status: http.StatusBadGateway, Message: "bad gateway"}, queued: true},
		{name: "bad request", err: &recommend.APIError{Status: http.StatusBadRequest, Message: "Invalid decision"}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{err: tt.err}
			s := newTestSession(t, 10, sub, Options{Outbox: ob})

			for range i {
				require.NoError(t, s.queue.Advance())
			}
			require.NoError(t, s.Swipe(models.Accept))
			waitSubmissions(t, s)

			res := <-s.Submissions()
			assert.Equal(t, tt.queued, res.Queued)
		})
	}

	entries, err := ob.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSession_DragWhileSubmissionInFlight(t *testing.T) {
	gate := make(chan struct{})
	sub := &fakeSubmitter{gate: gate}
	s := newTestSession(t, 10, sub, Options{})

	swipeDrag(t, s, -200)
	swipeDrag(t, s, 200)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "c-3", cur.ID)

	close(gate)
	waitSubmissions(t, s)

	calls := sub.Calls()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, []submission{
		{userID: "u-1", target: "c-1", kind: models.Reject},
		{userID: "u-1", target: "c-2", kind: models.Accept},
	}, calls)
}

func TestSession_ConsumesWholeFeed(t *testing.T) {
	sub := &fakeSubmitter{}
	s := newTestSession(t, 12, sub, Options{})

	seen := map[string]bool{}
	for i := 0; i < 40; i++ {
		cur, err := s.Current()
		if IsExhausted(err) {
			s.Queue().Wait()
			if _, err = s.Current(); IsExhausted(err) {
				break
			}
			continue
		}
		require.NoError(t, err)
		assert.False(t, seen[cur.ID], "candidate %s shown twice", cur.ID)
		seen[cur.ID] = true
		require.NoError(t, s.Swipe(models.Accept))
		s.Queue().Wait()
	}
	waitSubmissions(t, s)

	assert.Len(t, seen, 12)
	assert.Len(t, sub.Calls(), 12)
	assert.Equal(t, 12, s.Summary().Shown)
	assert.Equal(t, 12, s.Summary().Accepted)
}

func TestSession_CloseIgnoresLateResults(t *testing.T) {
	gate := make(chan struct{})
	sub := &fakeSubmitter{gate: gate}
	s := newTestSession(t, 10, sub, Options{})

	require.NoError(t, s.Swipe(models.Accept))
	s.Close()
	close(gate)
	waitSubmissions(t, s)

	select {
	case res := <-s.Submissions():
		t.Fatalf("unexpected result after close: %+v", res)
	default:
	}
	assert.Len(t, sub.Calls(), 1, "a decision made before close is still delivered")

	_, err := s.Current()
	assert.ErrorIs(t, err, queue.ErrClosed)
	assert.ErrorIs(t, s.Swipe(models.Accept), queue.ErrClosed)
}

func TestSession_WaitCoversDecisionClosedMidFinalize(t *testing.T) {
	gate := make(chan struct{})
	sub := &fakeSubmitter{gate: gate}
	s := newTestSession(t, 10, sub, Options{})

	waited := make(chan struct{})
	var once sync.Once
	s.Queue().OnChange(func(queue.State) {
		once.Do(func() {
			// Close lands after the advance but before the submission starts
			s.Close()
			go func() {
				_ = s.Wait(context.Background())
				close(waited)
			}()
		})
	})

	require.NoError(t, s.Swipe(models.Accept))

	assert.Never(t, func() bool {
		select {
		case <-waited:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "Wait returned while a submission was still running")

	close(gate)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the submission finished")
	}
	assert.Len(t, sub.Calls(), 1)
}

func TestSession_CloseDuringExitAnimation(t *testing.T) {
	sub := &fakeSubmitter{}
	anim := &gesture.ManualAnimator{}
	s := newTestSession(t, 10, sub, Options{Animator: anim})

	require.NoError(t, s.Swipe(models.Accept))
	s.Close()
	require.True(t, anim.Finish())
	waitSubmissions(t, s)

	assert.Empty(t, sub.Calls())
	assert.Equal(t, 0, s.Queue().Snapshot().Cursor)
}

func TestSession_StartWithoutIdentity(t *testing.T) {
	q := queue.NewManager(&pagedFetcher{max: 3}, queue.Options{Logger: discardLogger()})
	s := New(q, &fakeSubmitter{}, Options{Logger: discardLogger()})
	defer s.Close()

	assert.ErrorIs(t, s.Start(context.Background(), identity("")), queue.ErrNoIdentity)
	assert.ErrorIs(t, s.PointerDown(gesture.Point{}), queue.ErrExhausted)
}
