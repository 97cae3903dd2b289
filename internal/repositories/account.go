package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
)

// AccountRepository stores a listener's OAuth credentials. One row per listener.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Save inserts or replaces the account for account.ListenerID.
func (r *AccountRepository) Save(ctx context.Context, account *models.Account) error {
	if account.ListenerID == "" {
		return fmt.Errorf("validation failed: account listener id is required")
	}
	if account.AccessToken == "" {
		return fmt.Errorf("validation failed: access token is required")
	}

	account.UpdatedAt = time.Now()

	var expiry sql.NullTime
	if !account.Expiry.IsZero() {
		expiry = sql.NullTime{Time: account.Expiry, Valid: true}
	}

	tokenType := account.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	query := `
		INSERT INTO accounts (listener_id, access_token, refresh_token, token_type, expiry, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listener_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN accounts.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			scope = CASE WHEN excluded.scope = '' THEN accounts.scope ELSE excluded.scope END,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ListenerID, account.AccessToken, account.RefreshToken, tokenType,
		expiry, strings.Join(account.Scopes, " "), account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

// Get returns the account linked to listenerID, or [shared.ErrNotAuthenticated] when none is stored.
func (r *AccountRepository) Get(ctx context.Context, listenerID string) (*models.Account, error) {
	query := `
		SELECT listener_id, access_token, refresh_token, token_type, expiry, scope, updated_at
		FROM accounts
		WHERE listener_id = ?
	`

	var (
		account models.Account
		expiry  sql.NullTime
		scope   string
	)

	err := r.db.QueryRowContext(ctx, query, listenerID).Scan(
		&account.ListenerID, &account.AccessToken, &account.RefreshToken, &account.TokenType,
		&expiry, &scope, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no account for listener %s", shared.ErrNotAuthenticated, listenerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	if expiry.Valid {
		account.Expiry = expiry.Time
	}
	account.Scopes = strings.Fields(scope)

	return &account, nil
}

// Delete unlinks the listener's account.
func (r *AccountRepository) Delete(ctx context.Context, listenerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE listener_id = ?`, listenerID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
