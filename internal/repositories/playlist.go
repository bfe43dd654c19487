package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/shared"
)

// PlaylistRepository handles persistence for managed playlists.
//
// Each user owns at most one managed playlist, enforced by a unique
// constraint on user_id.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new [PlaylistRepository] with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new managed playlist with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, user_id, spotify_id, name, uri, external_url, snapshot_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.UserID(),
		playlist.SpotifyID(),
		playlist.Name(),
		playlist.URI(),
		playlist.ExternalURL(),
		playlist.SnapshotID(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// GetByUser retrieves the managed playlist for a user.
// Returns (nil, nil) when the user has no playlist yet.
func (r *PlaylistRepository) GetByUser(userID string) (*models.Playlist, error) {
	query := `
		SELECT id, sequence, user_id, spotify_id, name, uri, external_url, snapshot_id, created_at, updated_at
		FROM playlists
		WHERE user_id = ?
	`

	var (
		id          string
		sequence    int
		uid         string
		spotifyID   string
		name        string
		uri         string
		externalURL string
		snapshotID  string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := r.db.QueryRow(query, userID).Scan(&id, &sequence, &uid, &spotifyID, &name, &uri, &externalURL, &snapshotID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := models.NewPlaylist(sequence, uid, spotifyID, name)
	playlist.SetID(id)
	playlist.SetURI(uri)
	playlist.SetExternalURL(externalURL)
	playlist.SetSnapshotID(snapshotID)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)

	return playlist, nil
}

// UpdateSnapshot records the upstream snapshot from the latest successful append
func (r *PlaylistRepository) UpdateSnapshot(userID, snapshotID string) error {
	query := `
		UPDATE playlists
		SET snapshot_id = ?, updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.db.Exec(query, snapshotID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}

	return requireAffected(result, "playlist for user", userID)
}
