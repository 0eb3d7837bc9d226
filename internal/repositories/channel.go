package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// ChannelRepository persists YouTube channels.
type ChannelRepository struct {
	db *sqlx.DB
}

// NewChannelRepository creates a new ChannelRepository with the given database connection
func NewChannelRepository(db *sqlx.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts the channel unless one with the same id exists, and returns the stored row.
// The boolean reports whether a new row was written.
func (r *ChannelRepository) Create(ctx context.Context, channel models.Channel) (*models.Channel, bool, error) {
	channel.Section = sectionOrDefault(channel.Section)

	query := r.db.Rebind(`
		INSERT INTO channels (id, title, section, uploads_playlist_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)

	result, err := r.db.ExecContext(ctx, query, channel.ID, channel.Title, channel.Section, channel.UploadsPlaylistID)
	if err != nil {
		return nil, false, storageError("insert channel", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, storageError("insert channel", err)
	}

	stored, err := r.Get(ctx, channel.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, rows > 0, nil
}

// Get retrieves a channel by id
func (r *ChannelRepository) Get(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	query := r.db.Rebind(`
		SELECT id, title, section, uploads_playlist_id, last_synced_at
		FROM channels
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &channel, query, id); err != nil {
		return nil, getError("channel", id, err)
	}
	return &channel, nil
}

// List retrieves channels matching criteria ("section"), ordered by title.
func (r *ChannelRepository) List(ctx context.Context, criteria map[string]any) ([]models.Channel, error) {
	query, args := sectionCriteria(`
		SELECT id, title, section, uploads_playlist_id, last_synced_at
		FROM channels
		WHERE 1 = 1`, nil, criteria)
	query += " ORDER BY title ASC, id ASC"

	channels := []models.Channel{}
	if err := r.db.SelectContext(ctx, &channels, r.db.Rebind(query), args...); err != nil {
		return nil, storageError("list channels", err)
	}
	return channels, nil
}

// Sources lists every channel as a sync [models.Source].
func (r *ChannelRepository) Sources(ctx context.Context) ([]models.Source, error) {
	channels, err := r.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return lo.Map(channels, func(c models.Channel, _ int) models.Source { return c.Source() }), nil
}

// Source returns the sync [models.Source] of a single channel.
func (r *ChannelRepository) Source(ctx context.Context, id string) (models.Source, error) {
	channel, err := r.Get(ctx, id)
	if err != nil {
		return models.Source{}, err
	}
	return channel.Source(), nil
}

// Touch records a completed sync. A title reported by the provider fills in a blank one.
func (r *ChannelRepository) Touch(ctx context.Context, id string, meta *models.ContainerMeta, at models.Timestamp) error {
	title := ""
	if meta != nil {
		title = meta.Title
	}

	query := r.db.Rebind(`
		UPDATE channels
		SET last_synced_at = ?,
			title = CASE WHEN title = '' THEN ? ELSE title END
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, at, title, id); err != nil {
		return storageError(fmt.Sprintf("touch channel %s", id), err)
	}
	return nil
}
