// package listing serves stored items back as keyset-paginated, filterable pages
package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/repositories"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Filters narrow a listing. Every field is an exact match and blank means unfiltered;
// a Section of "all" is also unfiltered. Difficulty applies to reading materials and
// Platform to posts.
type Filters struct {
	Section    string
	Difficulty string
	Platform   string
}

// Page is one page of a listing. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Service lists items of every family.
//
// Videos and articles are ordered newest first by published_at, posts by posted_at, each with
// the id as a descending tie-breaker. Reading materials are ordered by id ascending.
type Service struct {
	db      *sqlx.DB
	reading *repositories.ReadingRepository
	logger  *log.Logger
}

// NewService creates a listing service over db.
func NewService(db *sqlx.DB, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{
		db:      db,
		reading: repositories.NewReadingRepository(db),
		logger:  shared.WithLogger(logger, "component", "listing"),
	}
}

// List returns a page of any family with items left untyped, for callers that only encode them.
func (s *Service) List(ctx context.Context, family models.Family, filters Filters, cursor string, limit int) (*Page[any], error) {
	switch family {
	case models.FamilyVideos:
		return erase(s.Videos(ctx, filters, cursor, limit))
	case models.FamilyArticles:
		return erase(s.Articles(ctx, filters, cursor, limit))
	case models.FamilyPosts:
		return erase(s.Posts(ctx, filters, cursor, limit))
	case models.FamilyReading:
		return erase(s.Reading(ctx, filters, cursor, limit))
	default:
		return nil, fmt.Errorf("%w: unknown family %q", shared.ErrInvalidArgument, family)
	}
}

func erase[T any](p *Page[T], err error) (*Page[any], error) {
	if err != nil {
		return nil, err
	}
	return &Page[any]{
		Items:      lo.Map(p.Items, func(item T, _ int) any { return item }),
		NextCursor: p.NextCursor,
	}, nil
}

// Videos lists videos joined with their channel; Section filters on the channel.
func (s *Service) Videos(ctx context.Context, filters Filters, cursor string, limit int) (*Page[models.VideoView], error) {
	q := newQuery(`
		SELECT v.id, v.channel_id, v.title, v.description, v.published_at, v.thumbnail_url,
			c.title AS channel_title, c.section AS section
		FROM videos v
		JOIN channels c ON c.id = v.channel_id
		WHERE 1 = 1`)
	q.section("c.section", filters.Section)
	q.before(s.decode(cursor), "v.published_at", "v.id")
	q.descending("v.published_at", "v.id")

	return fetch[models.VideoView](ctx, s.db, q, normalizeLimit(limit))
}

// Articles lists articles joined with their feed; Section filters on the feed.
func (s *Service) Articles(ctx context.Context, filters Filters, cursor string, limit int) (*Page[models.ArticleView], error) {
	q := newQuery(`
		SELECT a.id, a.feed_id, a.title, a.link, a.author, a.published_at, a.summary, a.content, a.image_url,
			f.title AS feed_title, f.section AS section
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE 1 = 1`)
	q.section("f.section", filters.Section)
	q.before(s.decode(cursor), "a.published_at", "a.id")
	q.descending("a.published_at", "a.id")

	return fetch[models.ArticleView](ctx, s.db, q, normalizeLimit(limit))
}

// Posts lists posts joined with their account; Section filters on the account.
func (s *Service) Posts(ctx context.Context, filters Filters, cursor string, limit int) (*Page[models.PostView], error) {
	q := newQuery(`
		SELECT p.id, p.account_id, p.platform, p.content, p.posted_at, p.url, p.media_url,
			p.likes, p.shares, p.comments,
			ac.display_name AS author_name, ac.avatar_url AS author_image_url, ac.section AS section
		FROM posts p
		JOIN accounts ac ON ac.id = p.account_id
		WHERE 1 = 1`)
	q.section("ac.section", filters.Section)
	if filters.Platform != "" {
		q.where("p.platform = ?", strings.ToLower(filters.Platform))
	}
	q.before(s.decode(cursor), "p.posted_at", "p.id")
	q.descending("p.posted_at", "p.id")

	return fetch[models.PostView](ctx, s.db, q, normalizeLimit(limit))
}

// Reading lists reading materials with their tags, ordered by id ascending.
func (s *Service) Reading(ctx context.Context, filters Filters, cursor string, limit int) (*Page[models.ReadingMaterial], error) {
	q := newQuery(`
		SELECT id, title, author, description, difficulty, section,
			cover_url, pdf_url, audio_url, external_url, publication_year, pages, reading_time
		FROM reading_materials
		WHERE 1 = 1`)
	q.section("section", filters.Section)
	if filters.Difficulty != "" {
		q.where("difficulty = ?", filters.Difficulty)
	}
	if c := s.decode(cursor); c != nil {
		q.where("id > ?", c.ID)
	}
	q.sql.WriteString(" ORDER BY id ASC")

	page, err := fetch[models.ReadingMaterial](ctx, s.db, q, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}

	ids := lo.Map(page.Items, func(m models.ReadingMaterial, _ int) string { return m.ID })
	tags, err := s.reading.TagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range page.Items {
		page.Items[i].Tags = tags[page.Items[i].ID]
		if page.Items[i].Tags == nil {
			page.Items[i].Tags = []string{}
		}
	}
	return page, nil
}

// decode parses a cursor, returning nil for the first page. Malformed input is treated as
// a request for the first page.
func (s *Service) decode(cursor string) *Cursor {
	c, ok := DecodeCursor(cursor)
	if !ok {
		if cursor != "" {
			s.logger.Debug("ignoring malformed cursor", "cursor", cursor)
		}
		return nil
	}
	return &c
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// query accumulates a SELECT with ? placeholders.
type query struct {
	sql  strings.Builder
	args []any
}

func newQuery(base string) *query {
	q := &query{}
	q.sql.WriteString(base)
	return q
}

func (q *query) where(cond string, args ...any) {
	q.sql.WriteString(" AND ")
	q.sql.WriteString(cond)
	q.args = append(q.args, args...)
}

func (q *query) section(column, section string) {
	if section == "" || strings.EqualFold(section, models.SectionAll) {
		return
	}
	q.where(column+" = ?", section)
}

// before restricts rows to those strictly below the cursor's (key, id) pair.
func (q *query) before(c *Cursor, keyCol, idCol string) {
	if c == nil {
		return
	}
	q.where(fmt.Sprintf("(%[1]s < ? OR (%[1]s = ? AND %[2]s < ?))", keyCol, idCol), c.Key, c.Key, c.ID)
}

func (q *query) descending(keyCol, idCol string) {
	fmt.Fprintf(&q.sql, " ORDER BY %s DESC, %s DESC", keyCol, idCol)
}

// fetch runs q for limit+1 rows and derives the next cursor from the extra row's presence.
func fetch[T models.Item](ctx context.Context, db *sqlx.DB, q *query, limit int) (*Page[T], error) {
	q.sql.WriteString(" LIMIT ?")
	args := append(q.args, limit+1)

	items := []T{}
	if err := db.SelectContext(ctx, &items, db.Rebind(q.sql.String()), args...); err != nil {
		return nil, fmt.Errorf("%w: list: %v", shared.ErrStorage, err)
	}

	page := &Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = EncodeCursor(last.SortKey(), last.ItemID())
	}
	return page, nil
}
