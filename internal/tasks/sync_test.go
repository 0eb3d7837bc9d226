package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/repositories"
	"github.com/desertthunder/aggx/internal/services"
	"github.com/desertthunder/aggx/internal/shared"
	tu "github.com/desertthunder/aggx/internal/testing"
)

func videos(ids ...string) []models.Video {
	out := make([]models.Video, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.Video{
			ID:          id,
			Title:       "Video " + id,
			PublishedAt: fmt.Sprintf("2024-01-0%dT00:00:00Z", i+1),
		})
	}
	return out
}

type videoFixture struct {
	channels *repositories.ChannelRepository
	videos   *repositories.VideoRepository
	adapter  *tu.FakeAdapter[models.Video]
	syncer   *Syncer[models.Video]
}

func newVideoFixture(t *testing.T, opts SyncOptions, channels ...models.Channel) *videoFixture {
	t.Helper()
	db := tu.NewTestDB(t)
	f := &videoFixture{
		channels: repositories.NewChannelRepository(db),
		videos:   repositories.NewVideoRepository(db),
		adapter:  tu.NewFakeAdapter[models.Video]("fake"),
	}
	for _, c := range channels {
		if _, _, err := f.channels.Create(context.Background(), c); err != nil {
			t.Fatalf("failed to create channel: %v", err)
		}
	}
	f.syncer = NewSyncer(models.FamilyVideos, f.adapter, f.channels, f.videos, opts, shared.NewLogger(io.Discard))
	return f
}

// withChannel fills the item's foreign key the way a real adapter would.
func withChannel(id string, vs []models.Video) []models.Video {
	for i := range vs {
		vs[i].ChannelID = id
	}
	return vs
}

func TestSyncer(t *testing.T) {
	ctx := context.Background()
	a := models.Channel{ID: "UCA", Title: "A", Section: "theory", UploadsPlaylistID: "UUA"}
	b := models.Channel{ID: "UCB", Title: "B", Section: "news", UploadsPlaylistID: "UUB"}

	t.Run("one failing source does not stop the pass", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a, b)
		f.adapter.
			Script("UCA",
				tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1", "a2")), NextToken: "p2"},
				tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a3"))},
			).
			Script("UCB", tu.FakePage[models.Video]{Err: tu.ErrFake})

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}

		if report.ItemsUpdated != 3 {
			t.Errorf("ItemsUpdated = %d, want 3", report.ItemsUpdated)
		}
		if report.SourcesFailed != 1 {
			t.Errorf("SourcesFailed = %d, want 1", report.SourcesFailed)
		}
		if got := f.adapter.Tokens("UCA"); len(got) != 2 || got[0] != "" || got[1] != "p2" {
			t.Errorf("expected tokens [\"\" p2], got %q", got)
		}

		count, err := f.videos.Count(ctx)
		if err != nil {
			t.Fatalf("failed to count videos: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 stored videos, got %d", count)
		}

		var failed SourceResult
		for _, res := range report.Sources {
			if res.ContainerID == "UCB" {
				failed = res
			}
		}
		if failed.Status != StatusFailed || !strings.Contains(failed.Reason, "scripted failure") {
			t.Errorf("expected UCB to fail with a reason, got %+v", failed)
		}
	})

	t.Run("a failure mid-container keeps earlier pages", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a)
		f.adapter.Script("UCA",
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1", "a2")), NextToken: "p2"},
			tu.FakePage[models.Video]{Err: tu.ErrFake},
		)

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if report.SourcesFailed != 1 || report.ItemsUpdated != 2 {
			t.Errorf("expected 1 failure and 2 items, got %+v", report)
		}

		channel, err := f.channels.Get(ctx, "UCA")
		if err != nil {
			t.Fatalf("failed to get channel: %v", err)
		}
		if channel.LastSyncedAt != nil {
			t.Error("failed container should not be touched")
		}
	})

	t.Run("repeated passes are idempotent", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a)
		f.adapter.Script("UCA", tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1", "a2"))})

		for i := 0; i < 2; i++ {
			f.adapter.Reset()
			if _, err := f.syncer.Sync(ctx, nil); err != nil {
				t.Fatalf("pass %d failed: %v", i, err)
			}
		}

		count, err := f.videos.Count(ctx)
		if err != nil {
			t.Fatalf("failed to count videos: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 videos after two passes, got %d", count)
		}
	})

	t.Run("touches container with page metadata", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, models.Channel{ID: "UCC", UploadsPlaylistID: "UUC"})
		f.adapter.Script("UCC", tu.FakePage[models.Video]{
			Items: withChannel("UCC", videos("c1")),
			Meta:  &models.ContainerMeta{Title: "Resolved Title"},
		})

		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		f.syncer.now = func() time.Time { return now }

		if _, err := f.syncer.Sync(ctx, nil); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}

		channel, err := f.channels.Get(ctx, "UCC")
		if err != nil {
			t.Fatalf("failed to get channel: %v", err)
		}
		if channel.LastSyncedAt == nil || !channel.LastSyncedAt.Equal(now) {
			t.Errorf("expected last_synced_at %v, got %v", now, channel.LastSyncedAt)
		}
		if channel.Title != "Resolved Title" {
			t.Errorf("expected blank title to be filled, got %q", channel.Title)
		}
	})

	t.Run("sources without external id are skipped", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, models.Channel{ID: "UCX", Title: "X"})

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if report.SourcesSkipped != 1 || report.SourcesFailed != 0 {
			t.Errorf("expected one skipped source, got %+v", report)
		}
		if f.adapter.Calls("UCX") != 0 {
			t.Error("skipped source should not be fetched")
		}
	})

	t.Run("missing credentials skip, unsupported platforms report no provider", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a, b)
		f.adapter.
			Script("UCA", tu.FakePage[models.Video]{Err: fmt.Errorf("%w: no api key", shared.ErrMissingConfig)}).
			Script("UCB", tu.FakePage[models.Video]{Err: fmt.Errorf("%w: myspace", shared.ErrNoProvider)})

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if report.SourcesFailed != 0 || report.SourcesSkipped != 2 {
			t.Errorf("expected two skipped sources, got %+v", report)
		}
		statuses := map[string]SourceStatus{}
		for _, res := range report.Sources {
			statuses[res.ContainerID] = res.Status
		}
		if statuses["UCA"] != StatusSkipped || statuses["UCB"] != StatusNoProvider {
			t.Errorf("unexpected statuses %v", statuses)
		}
	})

	t.Run("invalid items are dropped", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a)
		items := append(withChannel("UCA", videos("a1", "a2")), models.Video{ChannelID: "UCA"})
		f.adapter.Script("UCA", tu.FakePage[models.Video]{Items: items})

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		res := report.Sources[0]
		if res.Status != StatusOK || res.Items != 2 || res.Dropped != 1 {
			t.Errorf("expected 2 stored and 1 dropped, got %+v", res)
		}
	})

	t.Run("repeated token ends the loop", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a)
		f.adapter.Script("UCA",
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1")), NextToken: "same"},
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a2")), NextToken: "same"},
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a3"))},
		)

		if _, err := f.syncer.Sync(ctx, nil); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if calls := f.adapter.Calls("UCA"); calls != 2 {
			t.Errorf("expected 2 fetches, got %d", calls)
		}
	})

	t.Run("max pages", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay, MaxPages: 1}, a)
		f.adapter.Script("UCA",
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1")), NextToken: "p2"},
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a2"))},
		)

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if report.ItemsUpdated != 1 || report.Sources[0].Status != StatusOK {
			t.Errorf("expected one page and ok status, got %+v", report.Sources[0])
		}
	})

	t.Run("page delay spaces fetches", func(t *testing.T) {
		delay := 40 * time.Millisecond
		f := newVideoFixture(t, SyncOptions{PageDelay: delay}, a)
		f.adapter.Script("UCA",
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1")), NextToken: "p2"},
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a2")), NextToken: "p3"},
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a3"))},
		)

		start := time.Now()
		if _, err := f.syncer.Sync(ctx, nil); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 2*delay-5*time.Millisecond {
			t.Errorf("expected at least %v between three fetches, took %v", 2*delay, elapsed)
		}
	})

	t.Run("fetch timeout fails the source", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay, FetchTimeout: 10 * time.Millisecond}, a)
		f.adapter.OnFetch = func(ctx context.Context, _ models.Source) error {
			<-ctx.Done()
			return ctx.Err()
		}

		report, err := f.syncer.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if report.SourcesFailed != 1 {
			t.Fatalf("expected the slow source to fail, got %+v", report)
		}
		if reason := report.Sources[0].Reason; !strings.Contains(reason, shared.ErrTimeout.Error()) {
			t.Errorf("expected a timeout reason, got %q", reason)
		}
	})

	t.Run("cancelled context stops the pass", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a, b)
		cctx, cancel := context.WithCancel(ctx)
		f.adapter.OnFetch = func(context.Context, models.Source) error {
			cancel()
			return nil
		}

		_, err := f.syncer.Sync(cctx, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a, b)
		f.adapter.Script("UCA", tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1"))})

		progress := make(chan ProgressUpdate, 100)
		if _, err := f.syncer.Sync(ctx, progress); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		close(progress)

		phases := map[Phase]int{}
		for update := range progress {
			phases[update.Phase]++
			if update.Family != models.FamilyVideos {
				t.Errorf("unexpected family %s", update.Family)
			}
		}
		if phases[ListSources] != 1 || phases[SourceDone] != 2 || phases[FetchPage] < 2 {
			t.Errorf("unexpected phases %v", phases)
		}
	})

	t.Run("full progress channel never blocks", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a)
		progress := make(chan ProgressUpdate)
		done := make(chan struct{})
		go func() {
			f.syncer.Sync(ctx, progress)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Sync blocked on an unread progress channel")
		}
	})

	t.Run("sync source", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a, b)
		f.adapter.Script("UCB", tu.FakePage[models.Video]{Items: withChannel("UCB", videos("b1", "b2"))})

		report, err := f.syncer.SyncSource(ctx, "UCB")
		if err != nil {
			t.Fatalf("SyncSource() error = %v", err)
		}
		if len(report.Sources) != 1 || report.ItemsUpdated != 2 {
			t.Errorf("unexpected report %+v", report)
		}
		if f.adapter.Calls("UCA") != 0 {
			t.Error("SyncSource should only fetch the requested container")
		}

		if _, err := f.syncer.SyncSource(ctx, "UCZ"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("nil page or panic fails only that container", func(t *testing.T) {
		for _, tc := range []struct {
			name    string
			explode bool
			want    string
		}{
			{name: "nil page", want: shared.ErrMalformedPayload.Error()},
			{name: "panic", explode: true, want: "panicked"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				f := newVideoFixture(t, SyncOptions{PageDelay: NoPageDelay}, a, b)
				f.adapter.Script("UCB", tu.FakePage[models.Video]{Items: withChannel("UCB", videos("b1"))})
				f.syncer.adapter = &brokenAdapter{FakeAdapter: f.adapter, broken: "UCA", explode: tc.explode}

				report, err := f.syncer.Sync(ctx, nil)
				if err != nil {
					t.Fatalf("Sync() error = %v", err)
				}
				if report.SourcesFailed != 1 || report.ItemsUpdated != 1 {
					t.Errorf("expected one failure and one stored item, got %+v", report)
				}
				for _, res := range report.Sources {
					switch res.ContainerID {
					case "UCA":
						if res.Status != StatusFailed || !strings.Contains(res.Reason, tc.want) {
							t.Errorf("expected UCA to fail with %q, got %+v", tc.want, res)
						}
					case "UCB":
						if res.Status != StatusOK {
							t.Errorf("expected UCB to sync, got %+v", res)
						}
					}
				}
				if _, err := f.videos.Get(ctx, "b1"); err != nil {
					t.Errorf("expected the sibling's video to be stored: %v", err)
				}
			})
		}
	})

	t.Run("zero page delay takes the default spacing", func(t *testing.T) {
		f := newVideoFixture(t, SyncOptions{}, a)
		if f.syncer.opts.PageDelay != DefaultPageDelay {
			t.Fatalf("expected default page delay %v, got %v", DefaultPageDelay, f.syncer.opts.PageDelay)
		}
		f.adapter.Script("UCA",
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a1")), NextToken: "p2"},
			tu.FakePage[models.Video]{Items: withChannel("UCA", videos("a2"))},
		)

		start := time.Now()
		if _, err := f.syncer.Sync(ctx, nil); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < DefaultPageDelay-50*time.Millisecond {
			t.Errorf("expected about %v between two fetches, took %v", DefaultPageDelay, elapsed)
		}
	})
}

// brokenAdapter returns no page, or panics, for one container and defers to the fake otherwise.
type brokenAdapter struct {
	*tu.FakeAdapter[models.Video]
	broken  string
	explode bool
}

func (b *brokenAdapter) FetchPage(ctx context.Context, src models.Source, token string) (*services.Page[models.Video], error) {
	if src.ContainerID != b.broken {
		return b.FakeAdapter.FetchPage(ctx, src, token)
	}
	if b.explode {
		panic("adapter exploded")
	}
	return nil, nil
}

type stubSyncer struct {
	family models.Family
	calls  atomic.Int32
	sync   func(n int) (*SyncReport, error)
}

func (s *stubSyncer) Family() models.Family { return s.family }

func (s *stubSyncer) Sync(ctx context.Context, _ chan<- ProgressUpdate) (*SyncReport, error) {
	n := int(s.calls.Add(1))
	if s.sync != nil {
		return s.sync(n)
	}
	return &SyncReport{Family: s.family}, nil
}

func (s *stubSyncer) SyncSource(ctx context.Context, id string) (*SyncReport, error) {
	return s.Sync(ctx, nil)
}

func TestSyncAll(t *testing.T) {
	t.Run("reports in order", func(t *testing.T) {
		v := &stubSyncer{family: models.FamilyVideos}
		a := &stubSyncer{family: models.FamilyArticles}

		reports, err := SyncAll(context.Background(), nil, v, a)
		if err != nil {
			t.Fatalf("SyncAll() error = %v", err)
		}
		if reports[0].Family != models.FamilyVideos || reports[1].Family != models.FamilyArticles {
			t.Errorf("unexpected report order %v %v", reports[0].Family, reports[1].Family)
		}
	})

	t.Run("surfaces orchestrator errors", func(t *testing.T) {
		boom := errors.New("boom")
		v := &stubSyncer{family: models.FamilyVideos, sync: func(int) (*SyncReport, error) { return nil, boom }}
		p := &stubSyncer{family: models.FamilyPosts}

		reports, err := SyncAll(context.Background(), nil, v, p)
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if reports[0] != nil || reports[1] == nil {
			t.Errorf("expected only the failing family to be nil, got %v", reports)
		}
	})
}
