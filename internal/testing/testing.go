// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/services"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
)

// NewTestDB opens a migrated in-memory sqlite database that is closed when the test ends.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := shared.NewDatabase("sqlite3", shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// FakePage is one scripted response of a [FakeAdapter].
type FakePage[T any] struct {
	Items     []T
	NextToken string
	Meta      *models.ContainerMeta
	Err       error
}

// FakeAdapter is a test double for [services.Adapter] that replays scripted pages per container.
//
// Pages are keyed by container id and served in order regardless of the token passed in;
// the requested tokens are recorded so tests can assert on the continuation chain.
type FakeAdapter[T any] struct {
	mu     sync.Mutex
	name   string
	pages  map[string][]FakePage[T]
	served map[string]int
	tokens map[string][]string
	// OnFetch runs before each fetch when set.
	OnFetch func(ctx context.Context, src models.Source) error
}

// NewFakeAdapter creates an adapter with no scripted pages.
func NewFakeAdapter[T any](name string) *FakeAdapter[T] {
	return &FakeAdapter[T]{
		name:   name,
		pages:  make(map[string][]FakePage[T]),
		served: make(map[string]int),
		tokens: make(map[string][]string),
	}
}

// Script appends pages for containerID.
func (f *FakeAdapter[T]) Script(containerID string, pages ...FakePage[T]) *FakeAdapter[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[containerID] = append(f.pages[containerID], pages...)
	return f
}

// Reset rewinds every container to its first scripted page.
func (f *FakeAdapter[T]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.served = make(map[string]int)
	f.tokens = make(map[string][]string)
}

func (f *FakeAdapter[T]) Name() string { return f.name }

// FetchPage serves the next scripted page of src.ContainerID. Containers without a
// script, or whose script is exhausted, return an empty final page.
func (f *FakeAdapter[T]) FetchPage(ctx context.Context, src models.Source, token string) (*services.Page[T], error) {
	if f.OnFetch != nil {
		if err := f.OnFetch(ctx, src); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens[src.ContainerID] = append(f.tokens[src.ContainerID], token)
	script := f.pages[src.ContainerID]
	i := f.served[src.ContainerID]
	if i >= len(script) {
		return &services.Page[T]{}, nil
	}
	f.served[src.ContainerID] = i + 1

	page := script[i]
	if page.Err != nil {
		return nil, page.Err
	}
	return &services.Page[T]{Items: page.Items, NextToken: page.NextToken, Container: page.Meta}, nil
}

// Tokens returns the tokens requested for containerID, in order.
func (f *FakeAdapter[T]) Tokens(containerID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens[containerID]...)
}

// Calls returns how many fetches were made for containerID.
func (f *FakeAdapter[T]) Calls(containerID string) int {
	return len(f.Tokens(containerID))
}

// ErrFake is returned by scripted failures that don't need a specific error.
var ErrFake = fmt.Errorf("%w: scripted failure", shared.ErrServiceUnavailable)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
