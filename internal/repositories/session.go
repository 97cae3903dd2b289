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

// SessionRepository implements [models.Repository] for [models.Session] persistence.
//
// The blend result and publication are stored as JSON documents alongside the session row.
type SessionRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, sequence, code, creator_id, partner_id, status, ratio, time_window, playlist_length,
	expires_at, result, publication, created_at, updated_at, deleted_at`

// Create inserts a new session with generated ID and sequence
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	result, publication, err := encodeSessionDocs(session)
	if err != nil {
		return err
	}

	id := shared.GenerateID()
	session.SetID(id)
	session.SetSequence(sequence)

	query := `
		INSERT INTO sessions (id, sequence, code, creator_id, partner_id, status, ratio, time_window, playlist_length,
			expires_at, compatibility_score, result, publication, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id, sequence, session.Code, session.CreatorID, nullString(session.PartnerID), string(session.Status),
		session.Config.Ratio, string(session.Config.Window), session.Config.Length,
		session.ExpiresAt, score(session), result, publication,
		session.CreatedAt(), session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// GetByCode retrieves a session by its join code
func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE code = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: code %s", shared.ErrSessionNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// Update persists the session's partner, status, configuration, result and publication
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, publication, err := encodeSessionDocs(session)
	if err != nil {
		return err
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET partner_id = ?, status = ?, ratio = ?, time_window = ?, playlist_length = ?, expires_at = ?,
			compatibility_score = ?, result = ?, publication = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	res, err := r.db.ExecContext(ctx, query,
		nullString(session.PartnerID), string(session.Status),
		session.Config.Ratio, string(session.Config.Window), session.Config.Length, session.ExpiresAt,
		score(session), result, publication, now, session.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, session.ID())
	}

	return nil
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

// List retrieves sessions matching the given criteria, newest first.
//
// Supported criteria: "participant" (creator or partner listener id), "creator_id", "status".
func (r *SessionRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if participant, ok := criteria["participant"].(string); ok && participant != "" {
		query += " AND (creator_id = ? OR partner_id = ?)"
		args = append(args, participant, participant)
	}
	if creatorID, ok := criteria["creator_id"].(string); ok && creatorID != "" {
		query += " AND creator_id = ?"
		args = append(args, creatorID)
	}
	switch status := criteria["status"].(type) {
	case models.SessionStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

func score(session *models.Session) sql.NullInt64 {
	if session.Result == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(session.Result.Score), Valid: true}
}

func encodeSessionDocs(session *models.Session) (result, publication sql.NullString, err error) {
	if result, err = encodeJSON(session.Result); err != nil {
		return result, publication, fmt.Errorf("failed to encode blend result: %w", err)
	}
	if publication, err = encodeJSON(session.Publication); err != nil {
		return result, publication, fmt.Errorf("failed to encode publication: %w", err)
	}
	return result, publication, nil
}

func scanSession(s scanner) (*models.Session, error) {
	var (
		id          string
		sequence    int
		code        string
		creatorID   string
		partnerID   sql.NullString
		status      string
		ratio       float64
		window      string
		length      int
		expiresAt   time.Time
		result      sql.NullString
		publication sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := s.Scan(&id, &sequence, &code, &creatorID, &partnerID, &status, &ratio, &window, &length,
		&expiresAt, &result, &publication, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	config := models.BlendConfig{Ratio: ratio, Window: models.Window(window), Length: length}
	session := models.NewSession(sequence, code, creatorID, config, expiresAt)
	session.SetID(id)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}
	session.PartnerID = partnerID.String
	session.Status = models.SessionStatus(status)

	if session.Result, err = decodeJSON[models.BlendResult](result); err != nil {
		return nil, fmt.Errorf("failed to decode blend result: %w", err)
	}
	if session.Publication, err = decodeJSON[models.Publication](publication); err != nil {
		return nil, fmt.Errorf("failed to decode publication: %w", err)
	}

	return session, nil
}
