package tasks

import (
	"fmt"

	"github.com/desertthunder/aggx/internal/models"
)

// ProgressUpdate represents a progress event during a sync pass.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Family  models.Family // Family being synced
	Phase   Phase         // Operation phase
	Step    int           // Current source number
	Total   int           // Total sources in this pass
	Message string        // Human-readable message for display
	Data    any           // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ListSources Phase = iota
	FetchPage
	SourceDone
	SourceFailed
	SourceSkipped
)

func (p Phase) String() string {
	switch p {
	case ListSources:
		return "list_sources"
	case FetchPage:
		return "fetch_page"
	case SourceDone:
		return "source_done"
	case SourceFailed:
		return "source_failed"
	case SourceSkipped:
		return "source_skipped"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func listSourcesUpdate(family models.Family, total int) ProgressUpdate {
	return ProgressUpdate{
		Family:  family,
		Phase:   ListSources,
		Total:   total,
		Message: fmt.Sprintf("Syncing %d %s sources...", total, family),
	}
}

func fetchPageUpdate(family models.Family, step, total int, src models.Source, page, items int) ProgressUpdate {
	return ProgressUpdate{
		Family:  family,
		Phase:   FetchPage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: page %d (%d items)", step, total, src.Title, page, items),
	}
}

func sourceUpdate(family models.Family, step, total int, res SourceResult) ProgressUpdate {
	update := ProgressUpdate{Family: family, Step: step, Total: total, Data: res}
	switch res.Status {
	case StatusOK:
		update.Phase = SourceDone
		update.Message = fmt.Sprintf("[%d/%d] ✓ %s (%d items)", step, total, res.Title, res.Items)
	case StatusFailed:
		update.Phase = SourceFailed
		update.Message = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Title, res.Reason)
	default:
		update.Phase = SourceSkipped
		update.Message = fmt.Sprintf("[%d/%d] - %s: %s", step, total, res.Title, res.Reason)
	}
	return update
}
