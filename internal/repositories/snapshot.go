package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
)

// SnapshotRepository stores per-window catalog snapshots and audio features for a session.
//
// Saving a window replaces that window's track and artist lists. Audio features accumulate:
// a later fetch adds vectors and overwrites vectors for the same track, but never removes any.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveSnapshots writes every snapshot in one transaction so a session never holds one listener's
// fresh data next to the other's stale data.
func (r *SnapshotRepository) SaveSnapshots(ctx context.Context, sessionID string, snapshots ...models.CatalogSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapshotQuery := `
		INSERT INTO catalog_snapshots (session_id, listener_id, time_window, tracks, artists, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, listener_id, time_window) DO UPDATE SET
			tracks = excluded.tracks,
			artists = excluded.artists,
			fetched_at = excluded.fetched_at
	`

	featureQuery := `
		INSERT INTO audio_features (session_id, listener_id, track_id, danceability, energy, valence, acousticness,
			instrumentalness, liveness, speechiness, tempo, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, listener_id, track_id) DO UPDATE SET
			danceability = excluded.danceability,
			energy = excluded.energy,
			valence = excluded.valence,
			acousticness = excluded.acousticness,
			instrumentalness = excluded.instrumentalness,
			liveness = excluded.liveness,
			speechiness = excluded.speechiness,
			tempo = excluded.tempo,
			fetched_at = excluded.fetched_at
	`

	for _, snap := range snapshots {
		if snap.ListenerID == "" || !snap.Window.Valid() {
			return fmt.Errorf("validation failed: snapshot needs a listener and a known window")
		}

		fetchedAt := snap.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now()
		}

		tracks, err := json.Marshal(nonNil(snap.Tracks))
		if err != nil {
			return fmt.Errorf("failed to encode tracks: %w", err)
		}
		artists, err := json.Marshal(nonNil(snap.Artists))
		if err != nil {
			return fmt.Errorf("failed to encode artists: %w", err)
		}

		_, err = tx.ExecContext(ctx, snapshotQuery,
			sessionID, snap.ListenerID, string(snap.Window), string(tracks), string(artists), fetchedAt)
		if err != nil {
			return fmt.Errorf("failed to save snapshot for listener %s: %w", snap.ListenerID, err)
		}

		for trackID, f := range snap.Features {
			if trackID == "" {
				continue
			}
			_, err := tx.ExecContext(ctx, featureQuery,
				sessionID, snap.ListenerID, trackID,
				f.Danceability, f.Energy, f.Valence, f.Acousticness, f.Instrumentalness, f.Liveness, f.Speechiness,
				f.Tempo, fetchedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to save audio features for track %s: %w", trackID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshots: %w", err)
	}

	return nil
}

// LoadSnapshot returns the listener's snapshot for window together with every audio feature vector
// stored for the listener in the session.
//
// Returns [shared.ErrInsufficientData] when the window has not been fetched.
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context, sessionID, listenerID string, window models.Window) (*models.CatalogSnapshot, error) {
	query := `
		SELECT tracks, artists, fetched_at
		FROM catalog_snapshots
		WHERE session_id = ? AND listener_id = ? AND time_window = ?
	`

	var (
		tracks    string
		artists   string
		fetchedAt time.Time
	)

	err := r.db.QueryRowContext(ctx, query, sessionID, listenerID, string(window)).Scan(&tracks, &artists, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s snapshot for listener %s", shared.ErrInsufficientData, window, listenerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	snap := &models.CatalogSnapshot{
		ListenerID: listenerID,
		Window:     window,
		FetchedAt:  fetchedAt,
	}
	if err := json.Unmarshal([]byte(tracks), &snap.Tracks); err != nil {
		return nil, fmt.Errorf("failed to decode tracks: %w", err)
	}
	if err := json.Unmarshal([]byte(artists), &snap.Artists); err != nil {
		return nil, fmt.Errorf("failed to decode artists: %w", err)
	}

	features, err := r.Features(ctx, sessionID, listenerID)
	if err != nil {
		return nil, err
	}
	snap.Features = features

	return snap, nil
}

// Features returns every audio feature vector stored for the listener in the session, keyed by track id.
func (r *SnapshotRepository) Features(ctx context.Context, sessionID, listenerID string) (map[string]models.AudioFeatures, error) {
	query := `
		SELECT track_id, danceability, energy, valence, acousticness, instrumentalness, liveness, speechiness, tempo
		FROM audio_features
		WHERE session_id = ? AND listener_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, listenerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio features: %w", err)
	}
	defer rows.Close()

	features := make(map[string]models.AudioFeatures)
	for rows.Next() {
		var f models.AudioFeatures
		err := rows.Scan(&f.TrackID, &f.Danceability, &f.Energy, &f.Valence, &f.Acousticness,
			&f.Instrumentalness, &f.Liveness, &f.Speechiness, &f.Tempo)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio features: %w", err)
		}
		features[f.TrackID] = f
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return features, nil
}

// Windows lists the windows fetched for the listener in the session.
func (r *SnapshotRepository) Windows(ctx context.Context, sessionID, listenerID string) ([]models.Window, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT time_window FROM catalog_snapshots WHERE session_id = ? AND listener_id = ? ORDER BY time_window`,
		sessionID, listenerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot windows: %w", err)
	}
	defer rows.Close()

	var windows []models.Window
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot window: %w", err)
		}
		windows = append(windows, models.Window(w))
	}
	return windows, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
