// Package tasks runs ingestion: sync passes, their schedule, and a bounded pool for
// one-off background work.
//
// # Sync passes
//
// A [Syncer] pairs a family's adapter ([services.Adapter]) with its container and item
// stores. [Syncer.Sync] walks every container, following continuation tokens page by page
// with a rate limit between fetches and a timeout on each fetch. One container failing is
// recorded in the [SyncReport] and the pass moves on to the next.
//
// Outcomes per container:
//   - ok: every page was fetched and stored, last_synced_at was touched
//   - failed: a fetch or a store failed; pages stored before the failure remain
//   - skipped: the container has no external id or the adapter lacks credentials
//   - no_provider: the account's platform has no social provider
//
// # Progress Reporting
//
// Sync passes emit [ProgressUpdate] values on an optional channel. Updates use select with
// default so a slow reader never blocks ingestion.
//
// # Scheduling
//
// [Scheduler] runs one goroutine per family: immediately, then every interval, switching
// to the backoff interval after a failed or panicking pass.
//
// # Pool
//
// [Pool] replaces fire-and-forget goroutines for add-source and refresh requests. Tasks are
// queued without blocking, rejected with [shared.ErrQueueFull] when the queue is full, and
// their status is queryable by id.
package tasks
