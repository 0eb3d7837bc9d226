// package server contains the middleware & handlers of the aggregator's HTTP API
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/listing"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/desertthunder/aggx/internal/tasks"
	"github.com/go-chi/chi/v5"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is a group of endpoints that registers its own routes.
type Handler interface {
	Routes(r chi.Router)
}

// Deps are the services the API is built on. Scheduler is optional.
type Deps struct {
	Listing   *listing.Service
	Registry  *tasks.Registry
	Syncers   map[models.Family]tasks.FamilySyncer
	Pool      *tasks.Pool
	Scheduler *tasks.Scheduler
	Logger    *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	router chi.Router
	http   *http.Server
	logger *log.Logger
}

// New creates a server listening on addr.
func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	logger := shared.WithLogger(deps.Logger, "component", "server")

	r := NewRouter(logger,
		&itemsHandler{listing: deps.Listing},
		&sourcesHandler{deps: deps},
		&tasksHandler{pool: deps.Pool, scheduler: deps.Scheduler},
	)

	return &Server{
		router: r,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ServeHTTP implements [http.Handler] for the entire API.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// container looks up the container id of a syncable family.
func (d Deps) container(ctx context.Context, family models.Family, id string) (any, error) {
	switch family {
	case models.FamilyVideos:
		return d.Registry.Channels.Get(ctx, id)
	case models.FamilyArticles:
		return d.Registry.Feeds.Get(ctx, id)
	case models.FamilyPosts:
		return d.Registry.Accounts.Get(ctx, id)
	default:
		return nil, errNotSyncable(family)
	}
}
