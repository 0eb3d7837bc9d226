package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/shared"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64

	// RetainedTasks is how many finished tasks stay queryable through [Pool.Task].
	RetainedTasks = 512
)

// TaskStatus is the lifecycle state of a submitted task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is a snapshot of a submitted unit of work.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	FinishedAt  time.Time  `json:"finishedAt,omitzero"`
}

// TaskFunc is work run by the pool. ctx is cancelled when the pool stops.
type TaskFunc func(ctx context.Context) error

type poolJob struct {
	id string
	fn TaskFunc
}

// Pool runs submitted tasks on a fixed number of workers behind a bounded queue.
//
// Submit never blocks: when the queue is full the task is rejected with [shared.ErrQueueFull].
// Only the most recent finished tasks are kept; older ones are forgotten.
type Pool struct {
	mu       sync.RWMutex
	jobs     chan poolJob
	tasks    map[string]*Task
	finished []string
	retain   int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopped  bool
	logger   *log.Logger
}

// NewPool starts workers goroutines reading from a queue of queueSize.
func NewPool(workers, queueSize int, logger *log.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan poolJob, queueSize),
		tasks:  make(map[string]*Task),
		retain: RetainedTasks,
		ctx:    ctx,
		cancel: cancel,
		logger: shared.WithLogger(logger, "component", "pool"),
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues fn and returns its task id.
func (p *Pool) Submit(name string, fn TaskFunc) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return "", shared.ErrPoolStopped
	}

	id := shared.GenerateID()
	select {
	case p.jobs <- poolJob{id: id, fn: fn}:
	default:
		return "", fmt.Errorf("%w: rejected %s", shared.ErrQueueFull, name)
	}

	p.tasks[id] = &Task{ID: id, Name: name, Status: TaskPending, SubmittedAt: time.Now()}
	p.logger.Debug("task submitted", "id", id, "name", name)
	return id, nil
}

// Task returns a snapshot of the task with id.
func (p *Pool) Task(id string) (Task, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Stop cancels running tasks, fails queued ones and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cancel()
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		if err := p.ctx.Err(); err != nil {
			p.finish(job.id, err)
			continue
		}
		p.update(job.id, func(t *Task) { t.Status = TaskRunning })
		p.finish(job.id, p.run(job))
	}
}

func (p *Pool) run(job poolJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return job.fn(p.ctx)
}

func (p *Pool) finish(id string, err error) {
	p.update(id, func(t *Task) {
		t.FinishedAt = time.Now()
		p.finished = append(p.finished, id)
		if err != nil {
			t.Status = TaskFailed
			t.Error = err.Error()
			p.logger.Warn("task failed", "id", id, "name", t.Name, "err", err)
		} else {
			t.Status = TaskDone
		}

		for len(p.finished) > p.retain {
			delete(p.tasks, p.finished[0])
			p.finished = p.finished[1:]
		}
	})
}

func (p *Pool) update(id string, fn func(*Task)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tasks[id]; ok {
		fn(t)
	}
}
