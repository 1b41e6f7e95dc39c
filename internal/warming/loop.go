package warming

import (
	"context"
	"fmt"
	"time"

	"github.com/Twine-Labs/instantly-email-warming-filter/internal/classify"
	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
)

// PollSpec configures the live inbox loop.
type PollSpec struct {
	Label    string
	Policy   classify.Policy
	Period   time.Duration // wall-clock cadence between iterations
	PageSize int64         // 0 means the API default
}

// BackfillSpec configures the one-time historical sweep.
type BackfillSpec struct {
	Label    string
	Policy   classify.Policy
	Window   time.Duration // how far back to search
	PageSize int64
}

const (
	defaultPeriod       = time.Hour
	defaultWindow       = 120 * 24 * time.Hour
	defaultBackfillPage = 500
	dateFormat          = "2006/01/02"
)

// Backfill sweeps every message in the trailing window once and relabels the
// warming ones. Terminates when the listing cursor is exhausted.
func (s *Service) Backfill(ctx context.Context, spec BackfillSpec) (int, error) {
	window := spec.Window
	if window <= 0 {
		window = defaultWindow
	}
	pageSize := spec.PageSize
	if pageSize <= 0 {
		pageSize = defaultBackfillPage
	}
	label := spec.Label
	if label == "" {
		label = DefaultLabel
	}

	labelID, err := s.EnsureLabel(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("ensure label: %w", err)
	}

	after := s.Clock().Add(-window).Format(dateFormat)
	q := gc.Query{Raw: fmt.Sprintf("after:%s", after)}
	s.Logger.InfoContext(ctx, "processing historical messages", "after", after)

	total, err := s.sweepOnce(ctx, q, pageSize, spec.Policy, labelID)
	if err != nil {
		return total, err
	}
	s.Logger.InfoContext(ctx, "finished processing historical messages", "cleared", total)
	return total, nil
}

// Poll runs the live loop: every period it drains the inbox, relabels
// warming mail and reports a summary. Page-level failures abort the
// iteration only; the next cycle is the retry. Auth failures end the loop.
func (s *Service) Poll(ctx context.Context, spec PollSpec) error {
	period := spec.Period
	if period <= 0 {
		period = defaultPeriod
	}
	label := spec.Label
	if label == "" {
		label = DefaultLabel
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		start := s.Clock()

		cleared, err := s.runIteration(ctx, label, spec)
		elapsed := s.Clock().Sub(start)
		switch {
		case err != nil && gc.IsAuth(err):
			return fmt.Errorf("poll iteration: %w", err)
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			s.Logger.ErrorContext(ctx, "poll iteration failed, retrying next cycle", "error", err, "elapsed", elapsed)
		default:
			s.Logger.InfoContext(ctx, fmt.Sprintf("cleared %d warming emails", cleared), "elapsed", elapsed)
		}

		if err := s.Sleep(ctx, period-elapsed); err != nil {
			return nil
		}
	}
}

func (s *Service) runIteration(ctx context.Context, label string, spec PollSpec) (int, error) {
	labelID, err := s.EnsureLabel(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("ensure label: %w", err)
	}
	return s.sweepOnce(ctx, gc.Query{LabelID: gc.InboxLabel}, spec.PageSize, spec.Policy, labelID)
}

// sweepOnce walks the full result set page by page: list, classify, mutate,
// advance the cursor. Returns how many messages were relabeled.
func (s *Service) sweepOnce(ctx context.Context, q gc.Query, pageSize int64, policy classify.Policy, labelID gc.LabelID) (int, error) {
	total := 0
	token := ""
	for {
		page, err := s.listPage(ctx, q, token, pageSize)
		if err != nil {
			return total, err
		}
		matches, err := s.Classify(ctx, page.IDs, policy)
		if err != nil {
			return total, fmt.Errorf("classify page: %w", err)
		}
		if len(matches) > 0 {
			if err := s.ApplyLabels(ctx, matches, labelID); err != nil {
				return total, err
			}
			total += len(matches)
		}
		if page.NextPageToken == "" {
			return total, nil
		}
		token = page.NextPageToken
	}
}
