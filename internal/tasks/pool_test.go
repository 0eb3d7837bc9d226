package tasks

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/aggx/internal/shared"
)

func TestPool(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("runs tasks and records outcomes", func(t *testing.T) {
		p := NewPool(2, 4, logger)
		defer p.Stop()

		ok, err := p.Submit("ok", func(context.Context) error { return nil })
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		bad, err := p.Submit("bad", func(context.Context) error { return errors.New("feed unreachable") })
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}

		waitFor(t, "tasks", func() bool {
			a, _ := p.Task(ok)
			b, _ := p.Task(bad)
			return a.Status == TaskDone && b.Status == TaskFailed
		})

		task, _ := p.Task(bad)
		if task.Error != "feed unreachable" || task.Name != "bad" || task.FinishedAt.IsZero() {
			t.Errorf("unexpected task %+v", task)
		}
	})

	t.Run("full queue rejects", func(t *testing.T) {
		p := NewPool(1, 1, logger)
		defer p.Stop()

		release := make(chan struct{})
		started := make(chan struct{})
		blocker := func(context.Context) error {
			close(started)
			<-release
			return nil
		}
		if _, err := p.Submit("blocker", blocker); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		<-started

		if _, err := p.Submit("queued", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if _, err := p.Submit("overflow", func(context.Context) error { return nil }); !errors.Is(err, shared.ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
		close(release)
	})

	t.Run("stop cancels running and queued tasks", func(t *testing.T) {
		p := NewPool(1, 2, logger)

		started := make(chan struct{})
		running, _ := p.Submit("running", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
		<-started
		queued, _ := p.Submit("queued", func(context.Context) error { return nil })

		p.Stop()

		for _, id := range []string{running, queued} {
			task, ok := p.Task(id)
			if !ok || task.Status != TaskFailed {
				t.Errorf("expected %s to fail on stop, got %+v", id, task)
			}
		}

		if _, err := p.Submit("late", func(context.Context) error { return nil }); !errors.Is(err, shared.ErrPoolStopped) {
			t.Errorf("expected ErrPoolStopped, got %v", err)
		}
		p.Stop()
	})

	t.Run("panics fail the task", func(t *testing.T) {
		p := NewPool(1, 1, logger)
		defer p.Stop()

		id, _ := p.Submit("panics", func(context.Context) error { panic("boom") })
		waitFor(t, "panicking task", func() bool {
			task, _ := p.Task(id)
			return task.Status == TaskFailed
		})
	})

	t.Run("forgets the oldest finished tasks", func(t *testing.T) {
		p := NewPool(1, 1, logger)
		defer p.Stop()
		p.retain = 2

		var ids []string
		for _, name := range []string{"first", "second", "third"} {
			id, err := p.Submit(name, func(context.Context) error { return nil })
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			waitFor(t, name, func() bool {
				task, _ := p.Task(id)
				return task.Status == TaskDone
			})
			ids = append(ids, id)
		}

		if _, ok := p.Task(ids[0]); ok {
			t.Error("expected the oldest finished task to be evicted")
		}
		for _, id := range ids[1:] {
			if _, ok := p.Task(id); !ok {
				t.Errorf("expected %s to be retained", id)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		p := NewPool(1, 1, logger)
		defer p.Stop()
		if _, ok := p.Task("nope"); ok {
			t.Error("expected unknown task to be missing")
		}
	})
}
