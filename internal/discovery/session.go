// Package discovery wires the candidate queue to the swipe gesture: the
// top card receives input, and every committed decision advances the queue
// and is submitted to the backend in the background.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Kavirubc/cofound/internal/gesture"
	"github.com/Kavirubc/cofound/internal/outbox"
	"github.com/Kavirubc/cofound/internal/queue"
	"github.com/Kavirubc/cofound/internal/recommend"
	"github.com/Kavirubc/cofound/pkg/models"
)

// Submitter records a decision with the backend
type Submitter interface {
	SubmitDecision(ctx context.Context, userID, targetID string, kind models.DecisionKind) (*recommend.SwipeAck, error)
}

// Options configures a Session
type Options struct {
	Gesture       gesture.Options
	Animator      gesture.Animator
	SubmitTimeout time.Duration
	// Outbox, when set, receives decisions whose submission failed with a
	// retryable error
	Outbox *outbox.Outbox
	Logger *slog.Logger
}

// SubmissionResult reports the outcome of one background submission
type SubmissionResult struct {
	Decision models.Decision
	Ack      *recommend.SwipeAck
	Err      error
	// Queued is true when the failed decision was handed to the outbox
	Queued bool
}

// Session is one browse screen: a queue, a gesture controller bound to its
// head, and the submissions spawned by finalized decisions.
type Session struct {
	queue     *queue.Manager
	gesture   *gesture.Controller
	submitter Submitter
	outbox    *outbox.Outbox
	timeout   time.Duration
	logger    *slog.Logger

	results chan SubmissionResult
	wg      sync.WaitGroup

	mu        sync.Mutex
	userID    string
	closed    bool
	lastShown string
	summary   models.BrowseSummary
}

// New creates a session over q. Start must be called before any input.
func New(q *queue.Manager, submitter Submitter, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 15 * time.Second
	}
	if opts.Gesture.Logger == nil {
		opts.Gesture.Logger = logger
	}

	s := &Session{
		queue:     q,
		submitter: submitter,
		outbox:    opts.Outbox,
		timeout:   opts.SubmitTimeout,
		logger:    logger,
		results:   make(chan SubmissionResult, 64),
	}
	s.gesture = gesture.NewController(opts.Gesture, opts.Animator, s.finalize)
	return s
}

// Start loads the first batch for identity. A load failure is returned but
// leaves the session usable; Refill can retry.
func (s *Session) Start(ctx context.Context, identity queue.Identity) error {
	if identity == nil || identity.UserID() == "" {
		return queue.ErrNoIdentity
	}
	s.mu.Lock()
	s.userID = identity.UserID()
	s.mu.Unlock()

	return s.queue.Initialize(ctx, identity)
}

// Queue exposes the underlying queue for rendering
func (s *Session) Queue() *queue.Manager {
	return s.queue
}

// Gesture exposes the controller for rendering and subscriptions
func (s *Session) Gesture() *gesture.Controller {
	return s.gesture
}

// Submissions delivers the result of every background submission started
// before Close
func (s *Session) Submissions() <-chan SubmissionResult {
	return s.results
}

// Current returns the top card
func (s *Session) Current() (models.Candidate, error) {
	c, err := s.queue.Current()
	if err != nil {
		return c, err
	}
	s.mu.Lock()
	if c.ID != s.lastShown {
		s.lastShown = c.ID
		s.summary.Shown++
	}
	s.mu.Unlock()
	return c, nil
}

// PointerDown starts a drag on the top card
func (s *Session) PointerDown(p gesture.Point) error {
	c, err := s.queue.Current()
	if err != nil {
		return err
	}
	return s.gesture.Begin(c.ID, p)
}

// PointerMove updates the drag
func (s *Session) PointerMove(p gesture.Point) error {
	return s.gesture.Move(p)
}

// PointerUp releases the drag and reports whether it commits or springs back
func (s *Session) PointerUp() (gesture.Phase, error) {
	return s.gesture.Release()
}

// Swipe applies kind to the top card as the action buttons do
func (s *Session) Swipe(kind models.DecisionKind) error {
	c, err := s.queue.Current()
	if err != nil {
		return err
	}
	return s.gesture.Force(c.ID, kind)
}

// Settle completes the running card animation
func (s *Session) Settle() bool {
	return s.gesture.Settle()
}

// Refill asks the queue for more candidates, for the empty-state button
func (s *Session) Refill() bool {
	return s.queue.PrefetchMore()
}

// Summary returns counts for the session so far
func (s *Session) Summary() models.BrowseSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// finalize runs when a commit's exit animation completes. The queue is
// advanced before the submission starts; a failed submission never rolls
// it back.
func (s *Session) finalize(d models.Decision) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("decision_ignored_after_close", slog.String("candidate_id", d.CandidateID))
		return
	}
	userID := s.userID
	// reserved here so Wait after Close covers a decision already past this check
	s.wg.Add(1)
	s.mu.Unlock()

	head, err := s.queue.Current()
	if err != nil || head.ID != d.CandidateID {
		s.wg.Done()
		s.logger.Warn("decision_not_on_head",
			slog.String("candidate_id", d.CandidateID),
			slog.String("head_id", head.ID))
		return
	}
	if err := s.queue.Advance(); err != nil {
		s.wg.Done()
		s.logger.Warn("advance_failed",
			slog.String("candidate_id", d.CandidateID),
			slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.summary.Record(d.Kind)
	s.mu.Unlock()

	s.logger.Info("decision_committed",
		slog.String("decision_id", d.ID),
		slog.String("candidate_id", d.CandidateID),
		slog.String("decision", d.Kind.String()))

	go s.submit(userID, d)
}

// submit sends one decision. It is not tied to the session's lifetime: a
// decision already shown as made is still delivered after Close.
func (s *Session) submit(userID string, d models.Decision) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ack, err := s.submitter.SubmitDecision(ctx, userID, d.CandidateID, d.Kind)
	result := SubmissionResult{Decision: d, Ack: ack, Err: err}

	if err != nil {
		s.logger.Warn("decision_submit_failed",
			slog.String("decision_id", d.ID),
			slog.String("candidate_id", d.CandidateID),
			slog.Int("status", recommend.StatusOf(err)),
			slog.String("error", err.Error()))

		if s.outbox != nil && recommend.IsRetryable(err) {
			qctx, qcancel := context.WithTimeout(context.Background(), s.timeout)
			if _, qerr := s.outbox.Enqueue(qctx, userID, d.CandidateID, d.Kind, err); qerr != nil {
				s.logger.Error("decision_lost",
					slog.String("decision_id", d.ID),
					slog.String("error", qerr.Error()))
			} else {
				result.Queued = true
			}
			qcancel()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.summary.SubmitFailed++
		if result.Queued {
			s.summary.Queued++
		}
	}
	if s.closed {
		return
	}
	select {
	case s.results <- result:
	default:
		s.logger.Debug("submission_result_dropped", slog.String("decision_id", d.ID))
	}
}

// Wait blocks until every started submission has finished or ctx ends
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the session down. The queue stops, pending input is refused
// and later submission results are no longer published.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.queue.Close()
}

// IsExhausted reports whether err means the queue has run dry
func IsExhausted(err error) bool {
	return errors.Is(err, queue.ErrExhausted)
}
