package models

import (
	"fmt"
	"strings"
	"time"
)

// Playlist represents the managed destination playlist for one user.
//
// Created lazily on first synchronization and persisted once; never recreated
// afterward. SnapshotID holds the upstream snapshot returned by the most recent
// successful track append.
type Playlist struct {
	id          string
	sequence    int
	userID      string
	spotifyID   string
	name        string
	uri         string
	externalURL string
	snapshotID  string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewPlaylist creates a new Playlist owned by the given user.
func NewPlaylist(sequence int, userID, spotifyID, name string) *Playlist {
	now := time.Now()
	return &Playlist{
		sequence:  sequence,
		userID:    userID,
		spotifyID: spotifyID,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *Playlist) ID() string           { return p.id }
func (p *Playlist) Sequence() int        { return p.sequence }
func (p *Playlist) UserID() string       { return p.userID }
func (p *Playlist) SpotifyID() string    { return p.spotifyID }
func (p *Playlist) Name() string         { return p.name }
func (p *Playlist) URI() string          { return p.uri }
func (p *Playlist) ExternalURL() string  { return p.externalURL }
func (p *Playlist) SnapshotID() string   { return p.snapshotID }
func (p *Playlist) CreatedAt() time.Time { return p.createdAt }
func (p *Playlist) UpdatedAt() time.Time { return p.updatedAt }

func (p *Playlist) SetID(id string)          { p.id = id }
func (p *Playlist) SetURI(uri string)        { p.uri = uri }
func (p *Playlist) SetExternalURL(u string)  { p.externalURL = u }
func (p *Playlist) SetSnapshotID(id string)  { p.snapshotID = id }
func (p *Playlist) SetCreatedAt(t time.Time) { p.createdAt = t }
func (p *Playlist) SetUpdatedAt(t time.Time) { p.updatedAt = t }

// Validate checks if the playlist's data is valid
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.userID) == "" {
		return fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(p.spotifyID) == "" {
		return fmt.Errorf("spotify ID is required")
	}
	return nil
}
