package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// FeedRepository persists RSS/Atom feeds.
//
// A feed's id is the normalized title, and its URL is unique: two titles pointing at the same URL
// surface as [shared.ErrIdentityConflict].
type FeedRepository struct {
	db *sqlx.DB
}

// NewFeedRepository creates a new FeedRepository with the given database connection
func NewFeedRepository(db *sqlx.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// Create inserts the feed unless one with the same id exists, and returns the stored row.
// A blank id is derived from the title. The boolean reports whether a new row was written.
func (r *FeedRepository) Create(ctx context.Context, feed models.Feed) (*models.Feed, bool, error) {
	feed.URL = strings.TrimSpace(feed.URL)
	if feed.URL == "" {
		return nil, false, fmt.Errorf("%w: feed url is required", shared.ErrInvalidInput)
	}
	if feed.ID == "" {
		feed.ID = shared.NormalizeID(feed.Title)
	}
	feed.Section = sectionOrDefault(feed.Section)

	query := r.db.Rebind(`
		INSERT INTO feeds (id, title, url, description, section)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)

	result, err := r.db.ExecContext(ctx, query, feed.ID, feed.Title, feed.URL, feed.Description, feed.Section)
	if err != nil {
		return nil, false, storageError("insert feed", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, storageError("insert feed", err)
	}

	stored, err := r.Get(ctx, feed.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, rows > 0, nil
}

// Get retrieves a feed by id
func (r *FeedRepository) Get(ctx context.Context, id string) (*models.Feed, error) {
	var feed models.Feed
	query := r.db.Rebind(`
		SELECT id, title, url, description, section, last_synced_at
		FROM feeds
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &feed, query, id); err != nil {
		return nil, getError("feed", id, err)
	}
	return &feed, nil
}

// GetByURL retrieves a feed by its URL
func (r *FeedRepository) GetByURL(ctx context.Context, url string) (*models.Feed, error) {
	var feed models.Feed
	query := r.db.Rebind(`
		SELECT id, title, url, description, section, last_synced_at
		FROM feeds
		WHERE url = ?
	`)
	if err := r.db.GetContext(ctx, &feed, query, url); err != nil {
		return nil, getError("feed", url, err)
	}
	return &feed, nil
}

// List retrieves feeds matching criteria ("section"), ordered by title.
func (r *FeedRepository) List(ctx context.Context, criteria map[string]any) ([]models.Feed, error) {
	query, args := sectionCriteria(`
		SELECT id, title, url, description, section, last_synced_at
		FROM feeds
		WHERE 1 = 1`, nil, criteria)
	query += " ORDER BY title ASC, id ASC"

	feeds := []models.Feed{}
	if err := r.db.SelectContext(ctx, &feeds, r.db.Rebind(query), args...); err != nil {
		return nil, storageError("list feeds", err)
	}
	return feeds, nil
}

// Sources lists every feed as a sync [models.Source].
func (r *FeedRepository) Sources(ctx context.Context) ([]models.Source, error) {
	feeds, err := r.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return lo.Map(feeds, func(f models.Feed, _ int) models.Source { return f.Source() }), nil
}

// Source returns the sync [models.Source] of a single feed.
func (r *FeedRepository) Source(ctx context.Context, id string) (models.Source, error) {
	feed, err := r.Get(ctx, id)
	if err != nil {
		return models.Source{}, err
	}
	return feed.Source(), nil
}

// Touch records a completed sync. The parsed feed title fills in a blank one and the
// parsed description replaces the stored one when present.
func (r *FeedRepository) Touch(ctx context.Context, id string, meta *models.ContainerMeta, at models.Timestamp) error {
	var title, description string
	if meta != nil {
		title, description = meta.Title, meta.Description
	}

	query := r.db.Rebind(`
		UPDATE feeds
		SET last_synced_at = ?,
			title = CASE WHEN title = '' THEN ? ELSE title END,
			description = CASE WHEN ? = '' THEN description ELSE ? END
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, at, title, description, description, id); err != nil {
		return storageError(fmt.Sprintf("touch feed %s", id), err)
	}
	return nil
}
