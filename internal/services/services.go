// package services defines interface Client for the upstream music catalog API
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/releaseradar/internal/models"
)

// Client defines the operations the synchronization core needs from the
// upstream music catalog and playlist API.
//
// All operations are single network calls with no local retry; callers own
// retry policy. Non-2xx responses surface as [*UpstreamError].
type Client interface {
	// CurrentUser retrieves the profile owning the given access token.
	CurrentUser(ctx context.Context, token string) (*UserProfile, error)

	// ArtistReleases retrieves an artist's recent releases (singles, albums, appearances),
	// capped at limit items.
	ArtistReleases(ctx context.Context, token, artistID string, limit int) ([]models.Release, error)

	// AlbumTrackURIs expands an album into its constituent track URIs,
	// preserving the upstream track order.
	AlbumTrackURIs(ctx context.Context, token, albumID string) ([]string, error)

	// AddTracksToPlaylist appends track URIs to a playlist and returns the
	// snapshot identifier the upstream reports. An empty snapshot means the
	// append was not accepted.
	AddTracksToPlaylist(ctx context.Context, token, playlistID string, uris []string) (string, error)

	// CreatePlaylist creates a playlist owned by the given profile.
	CreatePlaylist(ctx context.Context, token, profileID, name string) (*PlaylistInfo, error)

	// FollowedArtists retrieves the full followed-artist list, following
	// continuation cursors until exhausted.
	FollowedArtists(ctx context.Context, token string) ([]FollowedArtist, error)
}

// UserProfile is the upstream profile owning a credential.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// PlaylistInfo is the upstream representation of a created playlist.
type PlaylistInfo struct {
	ID          string
	Name        string
	URI         string
	ExternalURL string
	SnapshotID  string
}

// FollowedArtist is one entry of the upstream followed-artist listing.
type FollowedArtist struct {
	ID       string
	Name     string
	URI      string
	ImageURL string
}

// UpstreamError is a typed failure for non-2xx upstream responses.
//
// Callers treat 401 as "credential invalid, attempt refresh" and anything else
// as a transient, item-scoped failure.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error: status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusUnauthorized
}
