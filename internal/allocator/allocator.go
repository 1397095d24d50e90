// Package allocator hands out single-use codes from the shared document.
//
// Every operation is a fetch → mutate → conditional commit cycle against the
// store. There is no local locking: if another writer committed between our
// fetch and commit, the commit fails with store.ErrVersionConflict and the
// whole cycle is repeated from a fresh fetch, up to Config.MaxRetries times.
// Because a commit only succeeds against the exact version it was computed
// from, no code can be handed out twice.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"

	"passdist/entity"
	"passdist/internal/store"
	"passdist/lib/clock"
	"passdist/lib/sl"
)

var (
	ErrNoCodesAvailable   = errors.New("no codes available")
	ErrAllocationConflict = errors.New("allocation conflict")
)

const (
	opAllocate = "allocate"
	opReset    = "reset"
)

// Store is the document adapter, implemented by store.Store.
type Store interface {
	Fetch(ctx context.Context) (*entity.CodeSet, string, error)
	Commit(ctx context.Context, set *entity.CodeSet, version, message string) (string, error)
}

type Config struct {
	// MaxRetries is the number of full cycles repeated after a version conflict.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration
}

type Allocator struct {
	store   Store
	cfg     Config
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
	pick    func(n int) int
}

func New(st Store, cfg Config, metrics *Metrics, log *slog.Logger) *Allocator {
	if st == nil {
		panic("allocator: store is nil")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 50 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &Allocator{
		store:   st,
		cfg:     cfg,
		metrics: metrics,
		log:     log.With(sl.Module("allocator")),
		now:     time.Now,
		pick:    rand.IntN,
	}
}

// Allocate marks one random unused code as used and returns it.
func (a *Allocator) Allocate(ctx context.Context) (*entity.Allocation, error) {
	var allocation *entity.Allocation
	attempts, err := a.withConflictRetry(ctx, opAllocate, func(ctx context.Context) error {
		var err error
		allocation, err = a.allocateOnce(ctx)
		return err
	})
	switch {
	case err == nil:
		allocation.Attempts = attempts
		a.metrics.allocation(resultOK)
		a.log.With(
			slog.Int("code_id", allocation.ID),
			sl.Attempt(attempts),
		).Info("code allocated")
		return allocation, nil
	case errors.Is(err, ErrNoCodesAvailable):
		a.metrics.allocation(resultExhausted)
		a.log.With(
			slog.String(entity.TopicKey, entity.TopicExhausted),
		).Warn("no codes available")
	case errors.Is(err, ErrAllocationConflict):
		a.metrics.allocation(resultConflict)
		a.log.With(sl.Attempt(attempts)).Error("allocation retries exhausted", sl.Err(err))
	default:
		a.metrics.allocation(resultError)
		a.log.Error("allocation failed", sl.Err(err))
	}
	return nil, err
}

func (a *Allocator) allocateOnce(ctx context.Context) (*entity.Allocation, error) {
	set, version, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	unused := set.Unused()
	if len(unused) == 0 {
		return nil, ErrNoCodesAvailable
	}

	now := a.now().UTC()
	record := &set.Codes[unused[a.pick(len(unused))]]
	record.MarkUsed(now)
	set.Touch(now)

	message := fmt.Sprintf("update code usage - %s", clock.Format(now))
	if _, err = a.store.Commit(ctx, set, version, message); err != nil {
		return nil, err
	}
	return &entity.Allocation{
		ID:     record.ID,
		Code:   record.Code,
		UsedAt: now,
	}, nil
}

// Stats reads the document without modifying it.
func (a *Allocator) Stats(ctx context.Context) (*entity.Stats, error) {
	set, _, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return set.Stats(), nil
}

// Reset marks every code unused again. It is an administrative operation
// and goes through the same conflict retry as Allocate.
func (a *Allocator) Reset(ctx context.Context) (*entity.ResetResult, error) {
	var released int
	attempts, err := a.withConflictRetry(ctx, opReset, func(ctx context.Context) error {
		set, version, err := a.fetch(ctx)
		if err != nil {
			return err
		}
		now := a.now().UTC()
		released = set.ReleaseAll()
		set.Touch(now)
		message := fmt.Sprintf("reset code usage - %s", clock.Format(now))
		_, err = a.store.Commit(ctx, set, version, message)
		return err
	})
	if err != nil {
		a.log.With(sl.Attempt(attempts)).Error("reset failed", sl.Err(err))
		return nil, err
	}
	a.metrics.reset()
	a.log.With(
		slog.Int("released", released),
		sl.Attempt(attempts),
		slog.String(entity.TopicKey, entity.TopicReset),
	).Warn("all codes reset")
	return &entity.ResetResult{Released: released, Attempts: attempts}, nil
}

func (a *Allocator) fetch(ctx context.Context) (*entity.CodeSet, string, error) {
	defer a.metrics.observeFetch(time.Now())
	return a.store.Fetch(ctx)
}

// withConflictRetry runs fn until it succeeds, fails with anything other
// than a version conflict, or the retry budget is spent. It returns the
// number of attempts made.
func (a *Allocator) withConflictRetry(ctx context.Context, op string, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if errors.Is(err, store.ErrVersionConflict) {
			a.metrics.conflict(op)
			a.log.With(
				slog.String("op", op),
				sl.Attempt(attempts),
			).Debug("version conflict, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, store.ErrVersionConflict) {
		return attempts, fmt.Errorf("%w after %d attempts: %w", ErrAllocationConflict, attempts, err)
	}
	return attempts, err
}

func (a *Allocator) backoff() retry.Backoff {
	b := retry.NewExponential(a.cfg.BaseDelay)
	if a.cfg.Jitter > 0 {
		b = retry.WithJitter(a.cfg.Jitter, b)
	}
	b = retry.WithCappedDuration(a.cfg.MaxDelay, b)
	return retry.WithMaxRetries(uint64(a.cfg.MaxRetries), b)
}
