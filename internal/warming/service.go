// Package warming implements the classification-and-batching loop that moves
// deliverability-warming mail out of the inbox.
package warming

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Twine-Labs/instantly-email-warming-filter/internal/classify"
	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
	"github.com/Twine-Labs/instantly-email-warming-filter/internal/rate"
)

const (
	// DefaultLabel is the remote label warming mail is filed under.
	DefaultLabel = "Warming"

	// maxBatchModify is the hard ceiling the Gmail API enforces per
	// batchModify call.
	maxBatchModify = 1000
)

// FetchMode selects how classification fetches are scheduled.
type FetchMode string

const (
	// FetchPool issues one fetch per message through a bounded worker pool.
	FetchPool FetchMode = "pool"
	// FetchMicroBatch submits bounded groups of fetches sequentially, one
	// limiter token per group.
	FetchMicroBatch FetchMode = "microbatch"
)

// ModeForName resolves a fetch mode from its flag value.
func ModeForName(name string) (FetchMode, error) {
	switch FetchMode(name) {
	case FetchPool:
		return FetchPool, nil
	case FetchMicroBatch:
		return FetchMicroBatch, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q (want %q or %q)", name, FetchMicroBatch, FetchPool)
	}
}

// Service drains pages of candidate messages, classifies them and relabels
// the matches. Safe for a single caller; the Client must be safe for
// concurrent use when FetchPool is selected.
type Service struct {
	Client  gc.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time

	// Sleep is the cadence primitive of the poll loop; overridable in tests.
	Sleep func(ctx context.Context, d time.Duration) error

	// NewBackOff builds the retry schedule for page-level list and mutate
	// calls. Transient failures only; permanent and auth failures escalate
	// immediately.
	NewBackOff func() backoff.BackOff

	Mode           FetchMode
	PoolSize       int
	MicroBatchSize int
	MaxTries       uint
}

// NewService constructs a Service with the deployment defaults: micro-batches
// of 30 fetches and up to 4 attempts per page-level call.
func NewService(client gc.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Client:         client,
		Limiter:        limiter,
		Logger:         logger,
		Clock:          time.Now,
		Sleep:          sleepContext,
		NewBackOff:     func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		Mode:           FetchMicroBatch,
		PoolSize:       10,
		MicroBatchSize: 30,
		MaxTries:       4,
	}
}

// EnsureLabel returns the identifier of the named label, creating it when
// absent. Existing labels are searched by name first so repeated calls never
// create duplicates.
func (s *Service) EnsureLabel(ctx context.Context, name string) (gc.LabelID, error) {
	labels, err := s.Client.ListLabels(ctx)
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	if id, ok := labels[name]; ok {
		return id, nil
	}
	s.Logger.InfoContext(ctx, "creating label", "name", name)
	id, err := s.Client.CreateLabel(ctx, name)
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return id, nil
}

// Classify fetches each candidate and returns the identifiers whose content
// matched the policy. A failed fetch excludes that message from the match set
// and never aborts the rest; only auth failures propagate.
func (s *Service) Classify(ctx context.Context, ids []gc.MessageID, policy classify.Policy) ([]gc.MessageID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	switch s.Mode {
	case FetchPool:
		return s.classifyPool(ctx, ids, policy)
	default:
		return s.classifyMicroBatch(ctx, ids, policy)
	}
}

func (s *Service) classifyPool(ctx context.Context, ids []gc.MessageID, policy classify.Policy) ([]gc.MessageID, error) {
	limit := s.PoolSize
	if limit <= 0 {
		limit = 10
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu      sync.Mutex
		matches []gc.MessageID
	)
	for _, id := range ids {
		g.Go(func() error {
			matched, err := s.checkOne(ctx, id, policy)
			if err != nil {
				return err
			}
			if matched {
				mu.Lock()
				matches = append(matches, id)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Service) classifyMicroBatch(ctx context.Context, ids []gc.MessageID, policy classify.Policy) ([]gc.MessageID, error) {
	size := s.MicroBatchSize
	if size <= 0 {
		size = 30
	}
	var matches []gc.MessageID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		for _, id := range ids[start:end] {
			matched, err := s.checkOne(ctx, id, policy)
			if err != nil {
				return nil, err
			}
			if matched {
				matches = append(matches, id)
			}
		}
	}
	return matches, nil
}

// checkOne applies the policy to a single message. Fetch failures are
// conservative: an uncertain message is never treated as a match.
func (s *Service) checkOne(ctx context.Context, id gc.MessageID, policy classify.Policy) (bool, error) {
	detail, err := s.Client.Get(ctx, id)
	if err != nil {
		if gc.IsAuth(err) || ctx.Err() != nil {
			return false, err
		}
		s.Logger.WarnContext(ctx, "skipping message, fetch failed", "id", string(id), "error", err)
		return false, nil
	}
	return policy.Match(detail), nil
}

// ApplyLabels partitions ids into chunks of at most 1000 and issues one bulk
// mutation per chunk, adding labelID and removing INBOX.
func (s *Service) ApplyLabels(ctx context.Context, ids []gc.MessageID, labelID gc.LabelID) error {
	ops := gc.ModifyOps{
		AddLabels:    []gc.LabelID{labelID},
		RemoveLabels: []gc.LabelID{gc.InboxLabel},
	}
	for start := 0; start < len(ids); start += maxBatchModify {
		end := start + maxBatchModify
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		_, err := retry(ctx, s, func() (struct{}, error) {
			return struct{}{}, s.Client.BatchModify(ctx, chunk, ops)
		})
		if err != nil {
			return fmt.Errorf("batch modify %d messages: %w", len(chunk), err)
		}
	}
	return nil
}

func (s *Service) listPage(ctx context.Context, q gc.Query, pageToken string, pageSize int64) (gc.ListPage, error) {
	page, err := retry(ctx, s, func() (gc.ListPage, error) {
		return s.Client.List(ctx, q, pageToken, pageSize)
	})
	if err != nil {
		return gc.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	return page, nil
}

// retry reruns op on transient failures per the service backoff schedule.
// Anything non-transient stops immediately.
func retry[T any](ctx context.Context, s *Service, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !gc.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(s.NewBackOff()), backoff.WithMaxTries(s.MaxTries))
}

func (s *Service) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit fetch batch: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
