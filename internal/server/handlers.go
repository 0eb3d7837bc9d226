package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/aggx/internal/listing"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/desertthunder/aggx/internal/tasks"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type itemsHandler struct {
	listing *listing.Service
}

func (h *itemsHandler) Routes(r chi.Router) {
	r.Get("/{family}", h.list)
}

// list serves GET /api/{family}?section=&difficulty=&platform=&cursor=&limit=
func (h *itemsHandler) list(w http.ResponseWriter, r *http.Request) {
	family, err := familyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, fmt.Errorf("%w: limit must be an integer", shared.ErrInvalidArgument))
			return
		}
	}

	filters := listing.Filters{
		Section:    q.Get("section"),
		Difficulty: q.Get("difficulty"),
		Platform:   q.Get("platform"),
	}
	page, err := h.listing.List(r.Context(), family, filters, q.Get("cursor"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type sourcesHandler struct {
	deps Deps
}

func (h *sourcesHandler) Routes(r chi.Router) {
	r.Get("/channels", h.listChannels)
	r.Get("/feeds", h.listFeeds)
	r.Get("/accounts", h.listAccounts)
	r.Post("/channels", h.addChannel)
	r.Post("/feeds", h.addFeed)
	r.Post("/accounts", h.addAccount)
	r.Post("/{family}/{id}/refresh", h.refresh)
}

func sectionCriteria(r *http.Request) map[string]any {
	return map[string]any{"section": r.URL.Query().Get("section")}
}

func (h *sourcesHandler) listChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.deps.Registry.Channels.List(r.Context(), sectionCriteria(r))
	respond(w, channels, err)
}

func (h *sourcesHandler) listFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.deps.Registry.Feeds.List(r.Context(), sectionCriteria(r))
	respond(w, feeds, err)
}

func (h *sourcesHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.deps.Registry.Accounts.List(r.Context(), sectionCriteria(r))
	respond(w, accounts, err)
}

type channelRequest struct {
	ID                string `json:"id"`
	Section           string `json:"section"`
	Title             string `json:"title"`
	UploadsPlaylistID string `json:"uploadsPlaylistId"`
}

type feedRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Section string `json:"section"`
}

type accountRequest struct {
	Platform    string `json:"platform"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	ProfileURL  string `json:"profileUrl"`
	AvatarURL   string `json:"avatarUrl"`
	Section     string `json:"section"`
}

// createdResponse carries the stored container and, when a first sync was queued, its task.
type createdResponse struct {
	Source any    `json:"source"`
	TaskID string `json:"taskId,omitempty"`
}

func (h *sourcesHandler) addChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !decode(w, r, &req) {
		return
	}
	channel, created, err := h.deps.Registry.AddChannel(r.Context(), shared.ChannelSource(req))
	if err != nil {
		writeError(w, err)
		return
	}
	h.created(w, models.FamilyVideos, channel.ID, channel, created)
}

func (h *sourcesHandler) addFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if !decode(w, r, &req) {
		return
	}
	feed, created, err := h.deps.Registry.AddFeed(r.Context(), shared.FeedSource(req))
	if err != nil {
		writeError(w, err)
		return
	}
	h.created(w, models.FamilyArticles, feed.ID, feed, created)
}

func (h *sourcesHandler) addAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decode(w, r, &req) {
		return
	}
	account, created, err := h.deps.Registry.AddAccount(r.Context(), shared.AccountSource(req))
	if err != nil {
		writeError(w, err)
		return
	}
	h.created(w, models.FamilyPosts, account.ID, account, created)
}

// created responds 202 with a queued first sync for new containers, 201 when the family has
// no syncer to queue, and 200 for existing ones.
func (h *sourcesHandler) created(w http.ResponseWriter, family models.Family, id string, source any, created bool) {
	if !created {
		writeJSON(w, http.StatusOK, createdResponse{Source: source})
		return
	}
	if _, ok := h.deps.Syncers[family]; !ok {
		writeJSON(w, http.StatusCreated, createdResponse{Source: source})
		return
	}

	taskID, err := h.enqueue(family, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, createdResponse{Source: source, TaskID: taskID})
}

// refresh serves POST /api/{family}/{id}/refresh
func (h *sourcesHandler) refresh(w http.ResponseWriter, r *http.Request) {
	family, err := familyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.deps.container(r.Context(), family, id); err != nil {
		writeError(w, err)
		return
	}

	taskID, err := h.enqueue(family, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

func (h *sourcesHandler) enqueue(family models.Family, id string) (string, error) {
	syncer, ok := h.deps.Syncers[family]
	if !ok || h.deps.Pool == nil {
		return "", errNotSyncable(family)
	}

	return h.deps.Pool.Submit(fmt.Sprintf("sync %s %s", family, id), func(ctx context.Context) error {
		report, err := syncer.SyncSource(ctx, id)
		if err != nil {
			return err
		}
		for _, res := range report.Sources {
			if res.Status == tasks.StatusFailed {
				return fmt.Errorf("%s: %s", res.ContainerID, res.Reason)
			}
		}
		return nil
	})
}

type tasksHandler struct {
	pool      *tasks.Pool
	scheduler *tasks.Scheduler
}

func (h *tasksHandler) Routes(r chi.Router) {
	r.Get("/tasks/{id}", h.task)
	r.Get("/status", h.status)
}

func (h *tasksHandler) task(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.pool == nil {
		writeError(w, fmt.Errorf("%w: task %s", shared.ErrNotFound, id))
		return
	}
	task, ok := h.pool.Task(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: task %s", shared.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// status reports the scheduler's jobs, or an empty list when nothing is scheduled.
func (h *tasksHandler) status(w http.ResponseWriter, _ *http.Request) {
	statuses := []tasks.JobStatus{}
	if h.scheduler != nil {
		statuses = h.scheduler.Statuses()
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": statuses})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return false
	}
	return true
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
