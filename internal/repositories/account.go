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

// AccountRepository persists social accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository with the given database connection
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// AccountID derives the identifier of an account from its platform and username.
func AccountID(platform, username string) string {
	return shared.CompositeID(platform, username)
}

// Create inserts the account unless one with the same id exists, and returns the stored row.
//
// The id is always derived from platform and username, the platform is stored lowercased and
// the display name defaults to the username. The boolean reports whether a new row was written.
func (r *AccountRepository) Create(ctx context.Context, account models.Account) (*models.Account, bool, error) {
	account.Platform = strings.ToLower(strings.TrimSpace(account.Platform))
	account.Username = strings.TrimSpace(account.Username)
	if account.Platform == "" || account.Username == "" {
		return nil, false, fmt.Errorf("%w: account platform and username are required", shared.ErrInvalidInput)
	}
	account.ID = AccountID(account.Platform, account.Username)
	account.Section = sectionOrDefault(account.Section)
	if account.DisplayName == "" {
		account.DisplayName = account.Username
	}

	query := r.db.Rebind(`
		INSERT INTO accounts (id, platform, username, display_name, profile_url, avatar_url, section)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)

	result, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Platform,
		account.Username,
		account.DisplayName,
		account.ProfileURL,
		account.AvatarURL,
		account.Section,
	)
	if err != nil {
		return nil, false, storageError("insert account", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, storageError("insert account", err)
	}

	stored, err := r.Get(ctx, account.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, rows > 0, nil
}

// Get retrieves an account by id
func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	query := r.db.Rebind(`
		SELECT id, platform, username, display_name, profile_url, avatar_url, section, last_synced_at
		FROM accounts
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, getError("account", id, err)
	}
	return &account, nil
}

// List retrieves accounts matching criteria ("section", "platform"), ordered by id.
func (r *AccountRepository) List(ctx context.Context, criteria map[string]any) ([]models.Account, error) {
	query, args := sectionCriteria(`
		SELECT id, platform, username, display_name, profile_url, avatar_url, section, last_synced_at
		FROM accounts
		WHERE 1 = 1`, nil, criteria)

	if platform, ok := criteria["platform"].(string); ok && platform != "" {
		query += " AND platform = ?"
		args = append(args, strings.ToLower(platform))
	}
	query += " ORDER BY id ASC"

	accounts := []models.Account{}
	if err := r.db.SelectContext(ctx, &accounts, r.db.Rebind(query), args...); err != nil {
		return nil, storageError("list accounts", err)
	}
	return accounts, nil
}

// Sources lists every account as a sync [models.Source].
func (r *AccountRepository) Sources(ctx context.Context) ([]models.Source, error) {
	accounts, err := r.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return lo.Map(accounts, func(a models.Account, _ int) models.Source { return a.Source() }), nil
}

// Source returns the sync [models.Source] of a single account.
func (r *AccountRepository) Source(ctx context.Context, id string) (models.Source, error) {
	account, err := r.Get(ctx, id)
	if err != nil {
		return models.Source{}, err
	}
	return account.Source(), nil
}

// Touch records a completed sync. Profile details reported by the provider fill in blank
// profile and avatar URLs.
func (r *AccountRepository) Touch(ctx context.Context, id string, meta *models.ContainerMeta, at models.Timestamp) error {
	var profileURL, avatarURL string
	if meta != nil {
		profileURL, avatarURL = meta.URL, meta.ImageURL
	}

	query := r.db.Rebind(`
		UPDATE accounts
		SET last_synced_at = ?,
			profile_url = CASE WHEN profile_url = '' THEN ? ELSE profile_url END,
			avatar_url = CASE WHEN avatar_url = '' THEN ? ELSE avatar_url END
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, at, profileURL, avatarURL, id); err != nil {
		return storageError(fmt.Sprintf("touch account %s", id), err)
	}
	return nil
}
