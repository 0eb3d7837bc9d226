package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
)

// VideoRepository upserts videos keyed by provider video id.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository creates a new VideoRepository with the given database connection
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Upsert inserts the video or refreshes its title, description and thumbnail.
// Channel and publish date are fixed at creation.
func (r *VideoRepository) Upsert(ctx context.Context, video models.Video) error {
	if video.ID == "" {
		return fmt.Errorf("%w: video id is required", shared.ErrInvalidInput)
	}

	query := r.db.Rebind(`
		INSERT INTO videos (id, channel_id, title, description, published_at, thumbnail_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			thumbnail_url = excluded.thumbnail_url
	`)

	_, err := r.db.ExecContext(ctx, query,
		video.ID,
		video.ChannelID,
		video.Title,
		video.Description,
		video.PublishedAt,
		video.ThumbnailURL,
	)
	if err != nil {
		return storageError("upsert video "+video.ID, err)
	}
	return nil
}

// Get retrieves a video by id
func (r *VideoRepository) Get(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	query := r.db.Rebind(`
		SELECT id, channel_id, title, description, published_at, thumbnail_url
		FROM videos
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		return nil, getError("video", id, err)
	}
	return &video, nil
}

// Count returns the number of stored videos.
func (r *VideoRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM videos"); err != nil {
		return 0, storageError("count videos", err)
	}
	return n, nil
}
