package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/shared"
)

// UserRepository handles persistence for [models.User].
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	user.SetID(id)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (id, sequence, spotify_id, display_name, access_token, refresh_token, token_expiry, playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		user.SpotifyID(),
		user.DisplayName(),
		user.AccessToken(),
		user.RefreshToken(),
		nullableTime(user.TokenExpiry()),
		user.PlaylistID(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := userSelect + " WHERE id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves a user by their upstream profile ID
func (r *UserRepository) GetBySpotifyID(spotifyID string) (*models.User, error) {
	query := userSelect + " WHERE spotify_id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, spotifyID))
}

// Update modifies an existing user's profile fields in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET display_name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.DisplayName(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return requireAffected(result, "user", user.ID())
}

// UpdateTokens persists rotated credentials for the user.
// Implements the credential layer's token store contract.
func (r *UserRepository) UpdateTokens(user *models.User) error {
	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET access_token = ?, refresh_token = ?, token_expiry = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		user.AccessToken(),
		user.RefreshToken(),
		nullableTime(user.TokenExpiry()),
		now,
		user.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	return requireAffected(result, "user", user.ID())
}

// SetPlaylistID records the managed playlist for a user.
//
// Conditional write: only succeeds while no playlist is recorded, so the
// first writer wins under concurrent synchronizations of the same user.
func (r *UserRepository) SetPlaylistID(userID, playlistID string) error {
	query := `
		UPDATE users
		SET playlist_id = ?, updated_at = ?
		WHERE id = ? AND playlist_id = '' AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, playlistID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set playlist ID: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist already set for user %s", userID)
	}

	return nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return requireAffected(result, "user", id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := userSelect + " WHERE deleted_at IS NULL"
	args := []any{}

	if spotifyID, ok := criteria["spotify_id"].(string); ok && spotifyID != "" {
		query += " AND spotify_id = ?"
		args = append(args, spotifyID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

const userSelect = `
	SELECT id, sequence, spotify_id, display_name, access_token, refresh_token, token_expiry, playlist_id, created_at, updated_at, deleted_at
	FROM users
`

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w", shared.ErrUserNotFound)
	}
	return user, err
}

// scanUser builds a [models.User] from a row scan function.
func scanUser(scan func(...any) error) (*models.User, error) {
	var (
		id           string
		sequence     int
		spotifyID    string
		displayName  string
		accessToken  string
		refreshToken string
		tokenExpiry  sql.NullTime
		playlistID   string
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := scan(&id, &sequence, &spotifyID, &displayName, &accessToken, &refreshToken, &tokenExpiry, &playlistID, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user := models.NewUser(sequence, spotifyID, displayName)
	user.SetID(id)
	user.SetAccessToken(accessToken)
	user.SetRefreshToken(refreshToken)
	if tokenExpiry.Valid {
		user.SetTokenExpiry(tokenExpiry.Time)
	}
	user.SetPlaylistID(playlistID)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}

	return user, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// requireAffected fails when an update touched no rows.
func requireAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found or already deleted: %s", entity, id)
	}
	return nil
}
