// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/services"
)

// MockClient is a test double for [services.Client]. Each method delegates to
// its function field when set and returns a benign zero result otherwise.
type MockClient struct {
	CurrentUserFn     func(ctx context.Context, token string) (*services.UserProfile, error)
	ArtistReleasesFn  func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error)
	AlbumTrackURIsFn  func(ctx context.Context, token, albumID string) ([]string, error)
	AddTracksFn       func(ctx context.Context, token, playlistID string, uris []string) (string, error)
	CreatePlaylistFn  func(ctx context.Context, token, profileID, name string) (*services.PlaylistInfo, error)
	FollowedArtistsFn func(ctx context.Context, token string) ([]services.FollowedArtist, error)
}

func (m *MockClient) CurrentUser(ctx context.Context, token string) (*services.UserProfile, error) {
	if m.CurrentUserFn != nil {
		return m.CurrentUserFn(ctx, token)
	}
	return &services.UserProfile{ID: "mock-profile"}, nil
}

func (m *MockClient) ArtistReleases(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
	if m.ArtistReleasesFn != nil {
		return m.ArtistReleasesFn(ctx, token, artistID, limit)
	}
	return nil, nil
}

func (m *MockClient) AlbumTrackURIs(ctx context.Context, token, albumID string) ([]string, error) {
	if m.AlbumTrackURIsFn != nil {
		return m.AlbumTrackURIsFn(ctx, token, albumID)
	}
	return nil, nil
}

func (m *MockClient) AddTracksToPlaylist(ctx context.Context, token, playlistID string, uris []string) (string, error) {
	if m.AddTracksFn != nil {
		return m.AddTracksFn(ctx, token, playlistID, uris)
	}
	return "mock-snapshot", nil
}

func (m *MockClient) CreatePlaylist(ctx context.Context, token, profileID, name string) (*services.PlaylistInfo, error) {
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, token, profileID, name)
	}
	return &services.PlaylistInfo{ID: "mock-playlist", Name: name}, nil
}

func (m *MockClient) FollowedArtists(ctx context.Context, token string) ([]services.FollowedArtist, error) {
	if m.FollowedArtistsFn != nil {
		return m.FollowedArtistsFn(ctx, token)
	}
	return nil, nil
}

// MockTokenSource returns a fixed token, or an error when Err is set.
type MockTokenSource struct {
	Token string
	Err   error
}

func (m *MockTokenSource) AccessToken(ctx context.Context, user *models.User) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Token == "" {
		return "mock-token", nil
	}
	return m.Token, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
