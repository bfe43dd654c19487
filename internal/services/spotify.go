// Spotify API implementation of [Client]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/releaseradar/internal/models"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// DefaultReleaseLimit caps the releases fetched per artist when the
	// configured limit is absent or exceeds the upstream page size.
	DefaultReleaseLimit = 10

	followedArtistsPageSize = 50
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URI          string            `json:"uri"`
	Images       []SpotifyImage    `json:"images"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// SpotifyAlbum represents a simplified Spotify album as returned by the
// artist-albums endpoint.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	URI         string          `json:"uri"`
	AlbumGroup  string          `json:"album_group"`
	AlbumType   string          `json:"album_type"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Artists     []SpotifyArtist `json:"artists"`
	Images      []SpotifyImage  `json:"images"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URI          string            `json:"uri"`
	SnapshotID   string            `json:"snapshot_id"`
	ExternalURLs map[string]string `json:"external_urls"`
}

type spotifyPagedAlbums struct {
	Items []SpotifyAlbum `json:"items"`
}

type spotifyAlbumTrack struct {
	URI string `json:"uri"`
}

type spotifyPagedAlbumTracks struct {
	Items []spotifyAlbumTrack `json:"items"`
	Next  *string             `json:"next"`
}

type spotifyFollowedArtists struct {
	Artists struct {
		Items   []SpotifyArtist `json:"items"`
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
	} `json:"artists"`
}

// SpotifyClient implements the Client interface against the Spotify Web API.
//
// Unlike a session-scoped client, the access token is passed per call so a
// single instance serves every user in a fleet run.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyClient creates a Spotify API client. A nil http.Client falls back
// to http.DefaultClient; an empty baseURL targets the public API.
func NewSpotifyClient(baseURL string, httpClient *http.Client) *SpotifyClient {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SpotifyClient{baseURL: baseURL, httpClient: httpClient}
}

// OAuthConfig builds the oauth2 configuration for the Spotify authorization
// code flow with the scopes the synchronizer requires.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-follow-read",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// doRequest performs an authenticated HTTP request against the Spotify API.
func (s *SpotifyClient) doRequest(ctx context.Context, token, method, endpoint string, body any, result any) error {
	apiURL := s.baseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser retrieves the profile owning the given access token.
func (s *SpotifyClient) CurrentUser(ctx context.Context, token string) (*UserProfile, error) {
	var profile UserProfile
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ArtistReleases retrieves an artist's recent releases across singles, albums,
// and appearances, capped at limit items.
func (s *SpotifyClient) ArtistReleases(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
	if limit <= 0 || limit > followedArtistsPageSize {
		limit = DefaultReleaseLimit
	}

	endpoint := fmt.Sprintf("/artists/%s/albums?include_groups=single,album,appears_on&limit=%d", url.PathEscape(artistID), limit)

	var page spotifyPagedAlbums
	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	releases := make([]models.Release, 0, len(page.Items))
	for _, album := range page.Items {
		release := models.Release{
			ID:          album.ID,
			URI:         album.URI,
			Name:        album.Name,
			ReleaseDate: album.ReleaseDate,
		}
		if len(album.Images) > 0 {
			release.ImageURL = album.Images[0].URL
		}
		for _, artist := range album.Artists {
			release.Artists = append(release.Artists, models.ReleaseArtist{
				ID:   artist.ID,
				Name: artist.Name,
				URL:  artist.ExternalURLs["spotify"],
			})
		}
		releases = append(releases, release)
	}

	return releases, nil
}

// AlbumTrackURIs expands an album into its track URIs, preserving upstream order.
func (s *SpotifyClient) AlbumTrackURIs(ctx context.Context, token, albumID string) ([]string, error) {
	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=50", url.PathEscape(albumID))

	var page spotifyPagedAlbumTracks
	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(page.Items))
	for _, track := range page.Items {
		uris = append(uris, track.URI)
	}

	return uris, nil
}

// AddTracksToPlaylist appends track URIs to a playlist.
//
// Success is signalled by the snapshot identifier in the response body, not by
// the absence of a transport error.
func (s *SpotifyClient) AddTracksToPlaylist(ctx context.Context, token, playlistID string, uris []string) (string, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	body := map[string]any{"uris": uris}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}

	if err := s.doRequest(ctx, token, http.MethodPost, endpoint, body, &response); err != nil {
		return "", err
	}

	return response.SnapshotID, nil
}

// CreatePlaylist creates a private playlist owned by the given profile.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, token, profileID, name string) (*PlaylistInfo, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(profileID))

	body := map[string]any{
		"name":        name,
		"description": "Newly released tracks from artists you follow",
		"public":      false,
	}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, token, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}

	return &PlaylistInfo{
		ID:          playlist.ID,
		Name:        playlist.Name,
		URI:         playlist.URI,
		ExternalURL: playlist.ExternalURLs["spotify"],
		SnapshotID:  playlist.SnapshotID,
	}, nil
}

// FollowedArtists retrieves the user's complete followed-artist list,
// concatenating pages until no continuation cursor remains.
func (s *SpotifyClient) FollowedArtists(ctx context.Context, token string) ([]FollowedArtist, error) {
	var artists []FollowedArtist
	after := ""

	for {
		endpoint := fmt.Sprintf("/me/following?type=artist&limit=%d", followedArtistsPageSize)
		if after != "" {
			endpoint += "&after=" + url.QueryEscape(after)
		}

		var page spotifyFollowedArtists
		if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Artists.Items {
			artist := FollowedArtist{
				ID:   item.ID,
				Name: item.Name,
				URI:  item.URI,
			}
			if len(item.Images) > 0 {
				artist.ImageURL = item.Images[0].URL
			}
			artists = append(artists, artist)
		}

		if page.Artists.Cursors.After == "" {
			break
		}
		after = page.Artists.Cursors.After
	}

	return artists, nil
}
