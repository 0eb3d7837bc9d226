package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
)

// PostRepository upserts social posts keyed by provider post id.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new PostRepository with the given database connection
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Upsert inserts the post or refreshes its content, media and engagement counters.
// Account, platform, URL and post date are fixed at creation.
func (r *PostRepository) Upsert(ctx context.Context, post models.Post) error {
	if post.ID == "" {
		return fmt.Errorf("%w: post id is required", shared.ErrInvalidInput)
	}
	if post.PostedAt.IsZero() {
		post.PostedAt = models.Now()
	}

	query := r.db.Rebind(`
		INSERT INTO posts (id, account_id, platform, content, posted_at, url, media_url, likes, shares, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			media_url = excluded.media_url,
			likes = excluded.likes,
			shares = excluded.shares,
			comments = excluded.comments
	`)

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.AccountID,
		strings.ToLower(post.Platform),
		post.Content,
		post.PostedAt,
		post.URL,
		post.MediaURL,
		post.Likes,
		post.Shares,
		post.Comments,
	)
	if err != nil {
		return storageError("upsert post "+post.ID, err)
	}
	return nil
}

// Get retrieves a post by id
func (r *PostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	query := r.db.Rebind(`
		SELECT id, account_id, platform, content, posted_at, url, media_url, likes, shares, comments
		FROM posts
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, getError("post", id, err)
	}
	return &post, nil
}

// Count returns the number of stored posts.
func (r *PostRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM posts"); err != nil {
		return 0, storageError("count posts", err)
	}
	return n, nil
}
