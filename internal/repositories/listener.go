package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
)

// ListenerRepository implements [models.Repository] for [models.Listener] persistence.
type ListenerRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Listener] = (*ListenerRepository)(nil)

// NewListenerRepository creates a new [ListenerRepository] with the given database connection
func NewListenerRepository(db *sql.DB) *ListenerRepository {
	return &ListenerRepository{db: db}
}

const listenerColumns = `id, sequence, spotify_id, display_name, email, created_at, updated_at, deleted_at`

// Create inserts a new listener into the database with generated ID and sequence
func (r *ListenerRepository) Create(ctx context.Context, listener *models.Listener) error {
	if err := listener.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "listeners")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	listener.SetID(id)
	listener.SetSequence(sequence)

	query := `
		INSERT INTO listeners (id, sequence, spotify_id, display_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id, sequence, listener.SpotifyID, listener.DisplayName, listener.Email,
		listener.CreatedAt(), listener.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert listener: %w", err)
	}

	return nil
}

// Get retrieves a listener by ID, excluding soft-deleted listeners
func (r *ListenerRepository) Get(ctx context.Context, id string) (*models.Listener, error) {
	query := `SELECT ` + listenerColumns + ` FROM listeners WHERE id = ? AND deleted_at IS NULL`

	listener, err := scanListener(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrListenerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listener: %w", err)
	}

	return listener, nil
}

// GetBySpotifyID retrieves a listener by provider account id
func (r *ListenerRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*models.Listener, error) {
	query := `SELECT ` + listenerColumns + ` FROM listeners WHERE spotify_id = ? AND deleted_at IS NULL`

	listener, err := scanListener(r.db.QueryRowContext(ctx, query, spotifyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: spotify id %s", shared.ErrListenerNotFound, spotifyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listener: %w", err)
	}

	return listener, nil
}

// Upsert creates the listener or refreshes the profile of the existing one with the same provider id.
//
// On return listener carries the stored identity.
func (r *ListenerRepository) Upsert(ctx context.Context, listener *models.Listener) error {
	existing, err := r.GetBySpotifyID(ctx, listener.SpotifyID)
	if errors.Is(err, shared.ErrListenerNotFound) {
		return r.Create(ctx, listener)
	}
	if err != nil {
		return err
	}

	listener.SetID(existing.ID())
	listener.SetSequence(existing.Sequence())
	listener.SetCreatedAt(existing.CreatedAt())
	return r.Update(ctx, listener)
}

// Update modifies an existing listener in the database
func (r *ListenerRepository) Update(ctx context.Context, listener *models.Listener) error {
	if err := listener.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	listener.SetUpdatedAt(now)

	query := `
		UPDATE listeners
		SET spotify_id = ?, display_name = ?, email = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, listener.SpotifyID, listener.DisplayName, listener.Email, now, listener.ID())
	if err != nil {
		return fmt.Errorf("failed to update listener: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrListenerNotFound, listener.ID())
	}

	return nil
}

// Delete soft-deletes a listener by ID
func (r *ListenerRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE listeners SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete listener: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrListenerNotFound, id)
	}

	return nil
}

// List retrieves all listeners matching the given criteria, excluding soft-deleted listeners.
//
// Supported criteria: "spotify_id", "display_name".
func (r *ListenerRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Listener, error) {
	query := `SELECT ` + listenerColumns + ` FROM listeners WHERE deleted_at IS NULL`
	args := []any{}

	if spotifyID, ok := criteria["spotify_id"].(string); ok && spotifyID != "" {
		query += " AND spotify_id = ?"
		args = append(args, spotifyID)
	}
	if name, ok := criteria["display_name"].(string); ok && name != "" {
		query += " AND display_name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listeners: %w", err)
	}
	defer rows.Close()

	var listeners []*models.Listener
	for rows.Next() {
		listener, err := scanListener(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listener: %w", err)
		}
		listeners = append(listeners, listener)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return listeners, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanListener(s scanner) (*models.Listener, error) {
	var (
		id          string
		sequence    int
		spotifyID   string
		displayName string
		email       string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	if err := s.Scan(&id, &sequence, &spotifyID, &displayName, &email, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	listener := models.NewListener(sequence, spotifyID, displayName, email)
	listener.SetID(id)
	listener.SetCreatedAt(createdAt)
	listener.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		listener.SetDeletedAt(&deletedAt.Time)
	}

	return listener, nil
}
