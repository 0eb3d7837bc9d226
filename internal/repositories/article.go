package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
)

// ArticleRepository upserts feed articles keyed by normalized entry id.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new ArticleRepository with the given database connection
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Upsert inserts the article or refreshes its title, summary, content and image.
// Feed, link, author and publish date are fixed at creation.
func (r *ArticleRepository) Upsert(ctx context.Context, article models.Article) error {
	if article.ID == "" {
		return fmt.Errorf("%w: article id is required", shared.ErrInvalidInput)
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = models.Now()
	}

	query := r.db.Rebind(`
		INSERT INTO articles (id, feed_id, title, link, author, published_at, summary, content, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			content = excluded.content,
			image_url = excluded.image_url
	`)

	_, err := r.db.ExecContext(ctx, query,
		article.ID,
		article.FeedID,
		article.Title,
		article.Link,
		article.Author,
		article.PublishedAt,
		article.Summary,
		article.Content,
		article.ImageURL,
	)
	if err != nil {
		return storageError("upsert article "+article.ID, err)
	}
	return nil
}

// Get retrieves an article by id
func (r *ArticleRepository) Get(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	query := r.db.Rebind(`
		SELECT id, feed_id, title, link, author, published_at, summary, content, image_url
		FROM articles
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &article, query, id); err != nil {
		return nil, getError("article", id, err)
	}
	return &article, nil
}

// Count returns the number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM articles"); err != nil {
		return 0, storageError("count articles", err)
	}
	return n, nil
}
