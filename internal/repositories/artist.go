package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/shared"
)

// ArtistRepository handles persistence for a user's saved artists.
//
// Saved artists are keyed (user_id, spotify_id); saving an artist a user
// already follows is a no-op.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new [ArtistRepository] with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Save inserts a followed artist for a user with generated ID and sequence.
// Saving an artist the user already follows clears any prior removal and
// refreshes the display fields.
func (r *ArtistRepository) Save(artist *models.Artist) error {
	sequence, err := NextSequence(r.db, "artists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	artist.SetID(id)

	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO artists (id, sequence, user_id, spotify_id, name, uri, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, spotify_id) DO UPDATE SET
			name = excluded.name,
			uri = excluded.uri,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		artist.UserID(),
		artist.SpotifyID(),
		artist.Name(),
		artist.URI(),
		artist.ImageURL(),
		artist.CreatedAt(),
		artist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	return nil
}

// Remove unsaves an artist from a user's followed set
func (r *ArtistRepository) Remove(userID, spotifyID string) error {
	query := `
		UPDATE artists
		SET deleted_at = ?
		WHERE user_id = ? AND spotify_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), userID, spotifyID)
	if err != nil {
		return fmt.Errorf("failed to remove artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s for user %s", shared.ErrArtistNotFound, spotifyID, userID)
	}

	return nil
}

// ListByUser retrieves a user's saved artists in save order
func (r *ArtistRepository) ListByUser(userID string) ([]*models.Artist, error) {
	query := `
		SELECT id, sequence, user_id, spotify_id, name, uri, image_url, created_at, updated_at, deleted_at
		FROM artists
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		var (
			id        string
			sequence  int
			uid       string
			spotifyID string
			name      string
			uri       string
			imageURL  string
			createdAt time.Time
			updatedAt time.Time
			deletedAt sql.NullTime
		)

		if err := rows.Scan(&id, &sequence, &uid, &spotifyID, &name, &uri, &imageURL, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}

		artist := models.NewArtist(sequence, uid, spotifyID, name)
		artist.SetID(id)
		artist.SetURI(uri)
		artist.SetImageURL(imageURL)
		artist.SetCreatedAt(createdAt)
		artist.SetUpdatedAt(updatedAt)
		if deletedAt.Valid {
			artist.SetDeletedAt(&deletedAt.Time)
		}

		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}
