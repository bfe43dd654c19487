package models

import (
	"fmt"
	"strings"
	"time"
)

// User represents a registered account whose followed artists are scanned for new releases.
//
// Access and refresh tokens are rotated by the credential layer; PlaylistID is set
// at most once, when the first synchronization creates the managed playlist.
type User struct {
	id           string
	sequence     int
	spotifyID    string
	displayName  string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	playlistID   string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewUser creates a new User with the given sequence number, Spotify profile ID, and display name.
func NewUser(sequence int, spotifyID, displayName string) *User {
	now := time.Now()
	return &User{
		sequence:    sequence,
		spotifyID:   spotifyID,
		displayName: displayName,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) SpotifyID() string     { return u.spotifyID }
func (u *User) DisplayName() string   { return u.displayName }
func (u *User) AccessToken() string   { return u.accessToken }
func (u *User) RefreshToken() string  { return u.refreshToken }
func (u *User) TokenExpiry() time.Time { return u.tokenExpiry }
func (u *User) PlaylistID() string    { return u.playlistID }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)              { u.id = id }
func (u *User) SetDisplayName(name string)   { u.displayName = name }
func (u *User) SetPlaylistID(id string)      { u.playlistID = id }
func (u *User) SetCreatedAt(t time.Time)     { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)     { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time)    { u.deletedAt = t }
func (u *User) SetTokenExpiry(t time.Time)   { u.tokenExpiry = t }
func (u *User) SetAccessToken(token string)  { u.accessToken = token }
func (u *User) SetRefreshToken(token string) { u.refreshToken = token }

// SetTokens updates both credentials and the access token expiry in one step.
// An empty refresh token leaves the stored one untouched (Spotify omits it on rotation).
func (u *User) SetTokens(accessToken, refreshToken string, expiry time.Time) {
	u.accessToken = accessToken
	if refreshToken != "" {
		u.refreshToken = refreshToken
	}
	u.tokenExpiry = expiry
}

// HasPlaylist reports whether a managed playlist has been created for this user.
func (u *User) HasPlaylist() bool {
	return u.playlistID != ""
}

// Validate checks if the user's data is valid
func (u *User) Validate() error {
	if strings.TrimSpace(u.spotifyID) == "" {
		return fmt.Errorf("spotify ID is required")
	}
	return nil
}
