// Package outbox retries swipe decisions whose submission failed, so a
// flaky network does not silently lose them.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kavirubc/cofound/internal/recommend"
	"github.com/Kavirubc/cofound/pkg/models"
)

// Submitter delivers a decision to the backend
type Submitter interface {
	SubmitDecision(ctx context.Context, userID, targetID string, kind models.DecisionKind) (*recommend.SwipeAck, error)
}

// Options tunes redelivery
type Options struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
	Logger      *slog.Logger
	// Now overrides the clock in tests
	Now func() time.Time
}

// FlushResult counts what a flush did with each due entry
type FlushResult struct {
	Delivered int
	Retried   int
	Dropped   int
}

// Outbox schedules and redelivers failed decisions
type Outbox struct {
	store  Store
	opts   Options
	logger *slog.Logger
}

// New creates an outbox over store
func New(store Store, opts Options) *Outbox {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 2 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{store: store, opts: opts, logger: logger}
}

// Enqueue records a decision whose first delivery failed with cause. A
// pending entry for the same user and target is replaced.
func (o *Outbox) Enqueue(ctx context.Context, userID, targetID string, kind models.DecisionKind, cause error) (Entry, error) {
	now := o.opts.Now()
	e := Entry{
		ID:            models.DecisionKey(userID, targetID),
		UserID:        userID,
		TargetID:      targetID,
		Kind:          kind,
		Attempts:      1,
		NextAttemptAt: now.Add(o.backoff(1)),
		CreatedAt:     now,
	}
	if cause != nil {
		e.LastError = cause.Error()
	}
	if err := o.store.Put(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("failed to enqueue decision: %w", err)
	}
	o.logger.Info("decision_queued",
		slog.String("id", e.ID),
		slog.String("target_user_id", targetID),
		slog.String("decision", kind.String()))
	return e, nil
}

// List returns every pending entry
func (o *Outbox) List(ctx context.Context) ([]Entry, error) {
	return o.store.List(ctx)
}

// Flush redelivers every due entry once. Delivered entries are removed;
// entries that fail with a non-retryable error or run out of attempts are
// dropped; the rest are rescheduled with exponential backoff.
func (o *Outbox) Flush(ctx context.Context, submitter Submitter) (FlushResult, error) {
	var result FlushResult

	due, err := o.store.Due(ctx, o.opts.Now(), o.opts.BatchSize)
	if err != nil {
		return result, err
	}

	for _, e := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, submitErr := submitter.SubmitDecision(ctx, e.UserID, e.TargetID, e.Kind)
		if submitErr == nil {
			if err := o.store.Delete(ctx, e.ID); err != nil {
				return result, err
			}
			result.Delivered++
			o.logger.Info("decision_redelivered",
				slog.String("id", e.ID),
				slog.Int("attempts", e.Attempts+1))
			continue
		}

		if errors.Is(submitErr, context.Canceled) && ctx.Err() != nil {
			return result, ctx.Err()
		}

		e.Attempts++
		e.LastError = submitErr.Error()
		if !recommend.IsRetryable(submitErr) || e.Attempts >= o.opts.MaxAttempts {
			if err := o.store.Delete(ctx, e.ID); err != nil {
				return result, err
			}
			result.Dropped++
			o.logger.Warn("decision_dropped",
				slog.String("id", e.ID),
				slog.String("target_user_id", e.TargetID),
				slog.Int("attempts", e.Attempts),
				slog.String("error", e.LastError))
			continue
		}

		e.NextAttemptAt = o.opts.Now().Add(o.backoff(e.Attempts))
		if err := o.store.Put(ctx, e); err != nil {
			return result, err
		}
		result.Retried++
		o.logger.Debug("decision_retry_scheduled",
			slog.String("id", e.ID),
			slog.Int("attempts", e.Attempts),
			slog.Time("next_attempt_at", e.NextAttemptAt))
	}

	return result, nil
}

// Run flushes on every tick until ctx is done. Flush errors are logged and
// the loop keeps going.
func (o *Outbox) Run(ctx context.Context, submitter Submitter, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := o.Flush(ctx, submitter); err != nil && ctx.Err() == nil {
				o.logger.Warn("outbox_flush_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// backoff returns the delay before attempt+1
func (o *Outbox) backoff(attempt int) time.Duration {
	d := o.opts.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.opts.MaxBackoff {
			return o.opts.MaxBackoff
		}
	}
	return d
}
