package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/aggx/internal/models"
	"golang.org/x/sync/errgroup"
)

// SourceStatus is the outcome of syncing a single container.
type SourceStatus string

const (
	StatusOK         SourceStatus = "ok"
	StatusFailed     SourceStatus = "failed"
	StatusSkipped    SourceStatus = "skipped"
	StatusNoProvider SourceStatus = "no_provider"
)

// SourceResult records what happened to one container during a pass.
type SourceResult struct {
	ContainerID string       `json:"containerId"`
	Title       string       `json:"title"`
	Status      SourceStatus `json:"status"`
	Items       int          `json:"items"`             // Items upserted, including those from pages before a failure
	Dropped     int          `json:"dropped,omitempty"` // Items rejected as invalid or conflicting
	Pages       int          `json:"pages"`
	Reason      string       `json:"reason,omitempty"`
}

// SyncReport summarizes one pass over every container of a family.
type SyncReport struct {
	Family         models.Family  `json:"family"`
	ItemsUpdated   int            `json:"itemsUpdated"`
	SourcesFailed  int            `json:"sourcesFailed"`
	SourcesSkipped int            `json:"sourcesSkipped"`
	Sources        []SourceResult `json:"sources"`
	StartedAt      time.Time      `json:"startedAt"`
	FinishedAt     time.Time      `json:"finishedAt"`
}

func newReport(family models.Family, now time.Time) *SyncReport {
	return &SyncReport{Family: family, Sources: []SourceResult{}, StartedAt: now}
}

func (r *SyncReport) add(res SourceResult) {
	r.Sources = append(r.Sources, res)
	r.ItemsUpdated += res.Items
	switch res.Status {
	case StatusFailed:
		r.SourcesFailed++
	case StatusSkipped, StatusNoProvider:
		r.SourcesSkipped++
	}
}

// Duration is how long the pass took.
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FamilySyncer runs sync passes for one family. [Syncer] implements it for every item type.
type FamilySyncer interface {
	Family() models.Family

	// Sync visits every container of the family once. Per-container failures are recorded in
	// the report; only failures that stop the whole pass are returned.
	Sync(ctx context.Context, progress chan<- ProgressUpdate) (*SyncReport, error)

	// SyncSource runs a pass over a single container.
	SyncSource(ctx context.Context, containerID string) (*SyncReport, error)
}

// SyncAll runs one pass of each syncer concurrently. Reports are returned in the order of
// syncers; a failed pass leaves a nil entry and its error is returned once the rest finish.
func SyncAll(ctx context.Context, progress chan<- ProgressUpdate, syncers ...FamilySyncer) ([]*SyncReport, error) {
	reports := make([]*SyncReport, len(syncers))

	var g errgroup.Group
	for i, s := range syncers {
		g.Go(func() error {
			report, err := s.Sync(ctx, progress)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	return reports, g.Wait()
}
