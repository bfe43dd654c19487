package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/repositories"
	"github.com/desertthunder/releaseradar/internal/services"
	"github.com/desertthunder/releaseradar/internal/shared"
)

// TokenSource yields a currently valid access token for a user, refreshing
// and persisting credentials as needed. Implemented by [services.Authenticator].
type TokenSource interface {
	AccessToken(ctx context.Context, user *models.User) (string, error)
}

// SyncResult is the outcome of one user's synchronization.
type SyncResult struct {
	UserID      string // Internal user ID
	TracksAdded int    // Track URIs appended this run
	SnapshotID  string // Upstream snapshot from the append, empty when nothing was appended
}

// Synchronizer ensures a user has a managed playlist and appends newly
// released tracks to it.
//
// The playlist is created on the user's first synchronization, whether or not
// that run finds any tracks. The lookup-then-create is not transactional;
// concurrent runs for the same user could race, which is accepted for
// single-scheduler operation.
type Synchronizer struct {
	client       services.Client
	tokens       TokenSource
	artists      *repositories.ArtistRepository
	playlists    *repositories.PlaylistRepository
	users        *repositories.UserRepository
	resolver     *Resolver
	playlistName string
	logger       *log.Logger
}

// NewSynchronizer wires a Synchronizer from its collaborators.
func NewSynchronizer(
	client services.Client,
	tokens TokenSource,
	artists *repositories.ArtistRepository,
	playlists *repositories.PlaylistRepository,
	users *repositories.UserRepository,
	resolver *Resolver,
	playlistName string,
	logger *log.Logger,
) *Synchronizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if playlistName == "" {
		playlistName = "New Release Radar"
	}

	return &Synchronizer{
		client:       client,
		tokens:       tokens,
		artists:      artists,
		playlists:    playlists,
		users:        users,
		resolver:     resolver,
		playlistName: playlistName,
		logger:       logger,
	}
}

// SyncUser ensures the user's managed playlist exists, resolves new releases,
// and appends them to it.
//
// A zero fromDate means "released today (UTC)". An empty resolution returns a
// zero-track result without touching the append API; the playlist is still
// created and persisted when absent. The upstream snapshot identifier is the
// only append success signal.
func (s *Synchronizer) SyncUser(ctx context.Context, user *models.User, fromDate time.Time) (*SyncResult, error) {
	result := &SyncResult{UserID: user.ID()}

	token, err := s.tokens.AccessToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	playlist, err := s.ensurePlaylist(ctx, token, user)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain playlist: %w", err)
	}

	saved, err := s.artists.ListByUser(user.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to load saved artists: %w", err)
	}

	artistIDs := make([]string, 0, len(saved))
	for _, artist := range saved {
		artistIDs = append(artistIDs, artist.SpotifyID())
	}

	tracks, err := s.resolver.Resolve(ctx, token, artistIDs, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve releases: %w", err)
	}

	if len(tracks) == 0 {
		s.logger.Info("no new releases", "user_id", user.ID())
		return result, nil
	}

	snapshot, err := s.client.AddTracksToPlaylist(ctx, token, playlist.SpotifyID(), tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to append tracks: %w", err)
	}
	if snapshot == "" {
		return nil, fmt.Errorf("append not confirmed: upstream returned no snapshot")
	}

	if err := s.playlists.UpdateSnapshot(user.ID(), snapshot); err != nil {
		s.logger.Warn("failed to record playlist snapshot", "user_id", user.ID(), "error", err)
	}

	result.TracksAdded = len(tracks)
	result.SnapshotID = snapshot

	s.logger.Info("appended new releases",
		"user_id", user.ID(),
		"tracks", result.TracksAdded,
		"playlist_id", playlist.SpotifyID(),
	)

	return result, nil
}

// ensurePlaylist returns the user's managed playlist, creating it upstream
// and persisting it on first use.
func (s *Synchronizer) ensurePlaylist(ctx context.Context, token string, user *models.User) (*models.Playlist, error) {
	playlist, err := s.playlists.GetByUser(user.ID())
	if err != nil {
		return nil, err
	}
	if playlist != nil {
		return playlist, nil
	}

	info, err := s.client.CreatePlaylist(ctx, token, user.SpotifyID(), s.playlistName)
	if err != nil {
		return nil, fmt.Errorf("upstream playlist creation failed: %w", err)
	}

	playlist = models.NewPlaylist(0, user.ID(), info.ID, info.Name)
	playlist.SetURI(info.URI)
	playlist.SetExternalURL(info.ExternalURL)
	playlist.SetSnapshotID(info.SnapshotID)

	if err := s.playlists.Create(playlist); err != nil {
		return nil, fmt.Errorf("failed to persist playlist: %w", err)
	}

	if err := s.users.SetPlaylistID(user.ID(), info.ID); err != nil {
		// Another writer got there first; the persisted value wins.
		s.logger.Warn("playlist ID already recorded", "user_id", user.ID(), "error", err)
	} else {
		user.SetPlaylistID(info.ID)
	}

	s.logger.Info("created managed playlist", "user_id", user.ID(), "playlist_id", info.ID)

	return playlist, nil
}
