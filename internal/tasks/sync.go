package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/services"
	"github.com/desertthunder/aggx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultPageDelay    = time.Second
	DefaultFetchTimeout = 30 * time.Second

	// NoPageDelay disables the spacing between page fetches.
	NoPageDelay time.Duration = -1
)

// ContainerStore is the container side of a family's storage. The channel, feed and account
// repositories implement it.
type ContainerStore interface {
	Sources(ctx context.Context) ([]models.Source, error)
	Source(ctx context.Context, id string) (models.Source, error)
	Touch(ctx context.Context, id string, meta *models.ContainerMeta, at models.Timestamp) error
}

// ItemStore persists items of type T with insert-or-update semantics.
type ItemStore[T any] interface {
	Upsert(ctx context.Context, item T) error
}

// SyncOptions tune a [Syncer]. Zero values take the defaults.
type SyncOptions struct {
	PageDelay    time.Duration // Minimum spacing between page fetches of one container; negative for none
	FetchTimeout time.Duration // Bound on each FetchPage call
	MaxPages     int           // Stop following tokens after this many pages; 0 is unbounded
}

// Syncer pulls every container of one family through its adapter and upserts the items.
//
// Containers are visited sequentially. Each page is fully stored before the next token is
// requested, so a failure part way through a container keeps the pages already written and
// the next pass simply refreshes them.
type Syncer[T any] struct {
	family     models.Family
	adapter    services.Adapter[T]
	containers ContainerStore
	items      ItemStore[T]
	opts       SyncOptions
	logger     *log.Logger
	now        func() time.Time
}

// NewSyncer creates a syncer for family.
func NewSyncer[T any](
	family models.Family,
	adapter services.Adapter[T],
	containers ContainerStore,
	items ItemStore[T],
	opts SyncOptions,
	logger *log.Logger,
) *Syncer[T] {
	if opts.PageDelay == 0 {
		opts.PageDelay = DefaultPageDelay
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Syncer[T]{
		family:     family,
		adapter:    adapter,
		containers: containers,
		items:      items,
		opts:       opts,
		logger:     shared.WithLogger(logger, "family", family.String(), "adapter", adapter.Name()),
		now:        time.Now,
	}
}

func (s *Syncer[T]) Family() models.Family { return s.family }

// Sync runs one pass over every container of the family.
func (s *Syncer[T]) Sync(ctx context.Context, progress chan<- ProgressUpdate) (*SyncReport, error) {
	report := newReport(s.family, s.now())

	sources, err := s.containers.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s sources: %w", s.family, err)
	}

	total := len(sources)
	sendProgress(progress, listSourcesUpdate(s.family, total))
	s.logger.Info("sync started", "sources", total)

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.now()
			return report, fmt.Errorf("%s sync interrupted: %w", s.family, err)
		}

		res := s.syncSource(ctx, src, i+1, total, progress)
		report.add(res)
		sendProgress(progress, sourceUpdate(s.family, i+1, total, res))
	}

	report.FinishedAt = s.now()
	s.logger.Info("sync finished",
		"items", report.ItemsUpdated,
		"failed", report.SourcesFailed,
		"skipped", report.SourcesSkipped,
		"took", report.Duration())
	return report, nil
}

// SyncSource runs a pass over the single container id.
func (s *Syncer[T]) SyncSource(ctx context.Context, id string) (*SyncReport, error) {
	src, err := s.containers.Source(ctx, id)
	if err != nil {
		return nil, err
	}

	report := newReport(s.family, s.now())
	report.add(s.syncSource(ctx, src, 1, 1, nil))
	report.FinishedAt = s.now()
	return report, nil
}

// syncSource never panics: an adapter or store panic fails only this container.
func (s *Syncer[T]) syncSource(ctx context.Context, src models.Source, step, total int, progress chan<- ProgressUpdate) (res SourceResult) {
	res = SourceResult{ContainerID: src.ContainerID, Title: src.Title, Status: StatusOK}
	if res.Title == "" {
		res.Title = src.ContainerID
	}
	logger := s.logger.With("container", src.ContainerID)
	defer func() {
		if r := recover(); r != nil {
			res = s.fail(logger, res, fmt.Errorf("%s panicked: %v", s.adapter.Name(), r))
		}
	}()

	if src.ExternalID == "" {
		res.Status = StatusSkipped
		res.Reason = fmt.Sprintf("%v: no external id", shared.ErrMissingConfig)
		logger.Warn("skipping source", "reason", res.Reason)
		return res
	}

	limit := rate.Inf
	if s.opts.PageDelay > 0 {
		limit = rate.Every(s.opts.PageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var meta *models.ContainerMeta
	token := ""
	for {
		if err := limiter.Wait(ctx); err != nil {
			return s.fail(logger, res, err)
		}

		fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
		page, err := s.adapter.FetchPage(fetchCtx, src, token)
		timedOut := errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()
		if err != nil {
			if timedOut && !errors.Is(err, shared.ErrTimeout) {
				err = fmt.Errorf("%w after %s: %w", shared.ErrTimeout, s.opts.FetchTimeout, err)
			}
			return s.classify(logger, res, err)
		}
		if page == nil {
			return s.fail(logger, res, fmt.Errorf("%w: %s returned no page", shared.ErrMalformedPayload, s.adapter.Name()))
		}
		res.Pages++
		if page.Container != nil {
			meta = page.Container
		}

		for _, item := range page.Items {
			if err := s.items.Upsert(ctx, item); err != nil {
				if errors.Is(err, shared.ErrIdentityConflict) || errors.Is(err, shared.ErrInvalidInput) {
					logger.Warn("dropping item", "err", err)
					res.Dropped++
					continue
				}
				return s.fail(logger, res, err)
			}
			res.Items++
		}
		sendProgress(progress, fetchPageUpdate(s.family, step, total, src, res.Pages, len(page.Items)))

		if page.NextToken == "" || page.NextToken == token {
			break
		}
		if s.opts.MaxPages > 0 && res.Pages >= s.opts.MaxPages {
			logger.Debug("page limit reached", "pages", res.Pages)
			break
		}
		token = page.NextToken
	}

	if err := s.containers.Touch(ctx, src.ContainerID, meta, models.NewTimestamp(s.now())); err != nil {
		return s.fail(logger, res, err)
	}
	logger.Debug("source synced", "items", res.Items, "pages", res.Pages)
	return res
}

// classify records a fetch error. Unsupported platforms and missing credentials are not
// failures of the source itself.
func (s *Syncer[T]) classify(logger *log.Logger, res SourceResult, err error) SourceResult {
	switch {
	case errors.Is(err, shared.ErrNoProvider):
		res.Status = StatusNoProvider
		res.Reason = err.Error()
		logger.Debug("no provider for source", "err", err)
		return res
	case errors.Is(err, shared.ErrMissingConfig):
		res.Status = StatusSkipped
		res.Reason = err.Error()
		logger.Warn("skipping source", "reason", res.Reason)
		return res
	default:
		return s.fail(logger, res, err)
	}
}

func (s *Syncer[T]) fail(logger *log.Logger, res SourceResult, err error) SourceResult {
	res.Status = StatusFailed
	res.Reason = err.Error()
	logger.Error("source failed", "err", err, "items", res.Items)
	return res
}
