package models

import (
	"fmt"
	"strings"
	"time"
)

// Artist represents a followed artist saved by one user.
//
// Each user owns an independent saved set; the same upstream artist may appear
// under multiple users. Saved-artist membership is the sole input driving which
// artists are scanned during a synchronization run.
type Artist struct {
	id        string
	sequence  int
	userID    string
	spotifyID string
	name      string
	uri       string
	imageURL  string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewArtist creates a new saved Artist for the given user.
func NewArtist(sequence int, userID, spotifyID, name string) *Artist {
	now := time.Now()
	return &Artist{
		sequence:  sequence,
		userID:    userID,
		spotifyID: spotifyID,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
}

func (a *Artist) ID() string            { return a.id }
func (a *Artist) Sequence() int         { return a.sequence }
func (a *Artist) UserID() string        { return a.userID }
func (a *Artist) SpotifyID() string     { return a.spotifyID }
func (a *Artist) Name() string          { return a.name }
func (a *Artist) URI() string           { return a.uri }
func (a *Artist) ImageURL() string      { return a.imageURL }
func (a *Artist) CreatedAt() time.Time  { return a.createdAt }
func (a *Artist) UpdatedAt() time.Time  { return a.updatedAt }
func (a *Artist) DeletedAt() *time.Time { return a.deletedAt }

func (a *Artist) SetID(id string)           { a.id = id }
func (a *Artist) SetURI(uri string)         { a.uri = uri }
func (a *Artist) SetImageURL(url string)    { a.imageURL = url }
func (a *Artist) SetCreatedAt(t time.Time)  { a.createdAt = t }
func (a *Artist) SetUpdatedAt(t time.Time)  { a.updatedAt = t }
func (a *Artist) SetDeletedAt(t *time.Time) { a.deletedAt = t }

// Validate checks if the artist's data is valid
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.userID) == "" {
		return fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(a.spotifyID) == "" {
		return fmt.Errorf("spotify ID is required")
	}
	return nil
}
