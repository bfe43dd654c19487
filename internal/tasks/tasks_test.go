package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/repositories"
	"github.com/desertthunder/releaseradar/internal/services"
	"github.com/desertthunder/releaseradar/internal/shared"
)

// mockClient implements services.Client with overridable behavior and call counters.
type mockClient struct {
	mu sync.Mutex

	artistReleasesFn func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error)
	albumTrackURIsFn func(ctx context.Context, token, albumID string) ([]string, error)
	addTracksFn      func(ctx context.Context, token, playlistID string, uris []string) (string, error)
	createPlaylistFn func(ctx context.Context, token, profileID, name string) (*services.PlaylistInfo, error)

	artistReleasesCalls int
	albumTrackURIsCalls int
	addTracksCalls      int
	createPlaylistCalls int
}

func (m *mockClient) CurrentUser(ctx context.Context, token string) (*services.UserProfile, error) {
	return &services.UserProfile{ID: "profile"}, nil
}

func (m *mockClient) ArtistReleases(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
	m.mu.Lock()
	m.artistReleasesCalls++
	fn := m.artistReleasesFn
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, token, artistID, limit)
}

func (m *mockClient) AlbumTrackURIs(ctx context.Context, token, albumID string) ([]string, error) {
	m.mu.Lock()
	m.albumTrackURIsCalls++
	fn := m.albumTrackURIsFn
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, token, albumID)
}

func (m *mockClient) AddTracksToPlaylist(ctx context.Context, token, playlistID string, uris []string) (string, error) {
	m.mu.Lock()
	m.addTracksCalls++
	fn := m.addTracksFn
	m.mu.Unlock()

	if fn == nil {
		return "snap", nil
	}
	return fn(ctx, token, playlistID, uris)
}

func (m *mockClient) CreatePlaylist(ctx context.Context, token, profileID, name string) (*services.PlaylistInfo, error) {
	m.mu.Lock()
	m.createPlaylistCalls++
	fn := m.createPlaylistFn
	m.mu.Unlock()

	if fn == nil {
		return &services.PlaylistInfo{ID: "pl_" + profileID, Name: name}, nil
	}
	return fn(ctx, token, profileID, name)
}

func (m *mockClient) FollowedArtists(ctx context.Context, token string) ([]services.FollowedArtist, error) {
	return nil, nil
}

func (m *mockClient) calls() (artists, albums, adds, creates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artistReleasesCalls, m.albumTrackURIsCalls, m.addTracksCalls, m.createPlaylistCalls
}

// mockTokens implements TokenSource with per-user overrides.
type mockTokens struct {
	fn func(user *models.User) (string, error)
}

func (m *mockTokens) AccessToken(ctx context.Context, user *models.User) (string, error) {
	if m.fn == nil {
		return "token", nil
	}
	return m.fn(user)
}

func testSyncConfig() shared.SyncConfig {
	return shared.SyncConfig{ArtistLimit: 10, NumWorkers: 5, RateLimit: 1000, PlaylistName: "New Release Radar"}
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A second pool connection to ":memory:" would open a separate empty
	// database, so pin the pool to one connection for the concurrent tests.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

type testEnv struct {
	db        *sql.DB
	users     *repositories.UserRepository
	artists   *repositories.ArtistRepository
	playlists *repositories.PlaylistRepository
	entries   *repositories.ExecutionLogRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	return &testEnv{
		db:        db,
		users:     repositories.NewUserRepository(db),
		artists:   repositories.NewArtistRepository(db),
		playlists: repositories.NewPlaylistRepository(db),
		entries:   repositories.NewExecutionLogRepository(db),
	}
}

func (e *testEnv) createUser(t *testing.T, spotifyID string, artistIDs ...string) *models.User {
	t.Helper()

	user := models.NewUser(0, spotifyID, "Test User")
	if err := e.users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	for _, artistID := range artistIDs {
		if err := e.artists.Save(models.NewArtist(0, user.ID(), artistID, artistID)); err != nil {
			t.Fatalf("failed to save artist: %v", err)
		}
	}

	return user
}

func (e *testEnv) newScheduler(t *testing.T, client *mockClient, tokens TokenSource, config shared.SchedulerConfig) *Scheduler {
	t.Helper()

	if tokens == nil {
		tokens = &mockTokens{}
	}

	resolver := NewResolver(client, testSyncConfig(), nil)
	synchronizer := NewSynchronizer(client, tokens, e.artists, e.playlists, e.users, resolver, "New Release Radar", nil)
	return NewScheduler(synchronizer, e.users, e.entries, config, nil)
}

func (e *testEnv) countLogEntries(t *testing.T) int {
	t.Helper()

	var count int
	if err := e.db.QueryRow("SELECT COUNT(*) FROM execution_log").Scan(&count); err != nil {
		t.Fatalf("failed to count log entries: %v", err)
	}
	return count
}

func testSchedulerConfig() shared.SchedulerConfig {
	return shared.SchedulerConfig{
		Cron:             "0 22 * * *",
		Timezone:         "UTC",
		MinIntervalHours: 20,
		MissedRunHours:   24,
	}
}

func release(id, uri, date string) models.Release {
	return models.Release{ID: id, URI: uri, Name: id, ReleaseDate: date}
}

func TestResolver_ZeroArtists(t *testing.T) {
	client := &mockClient{}
	resolver := NewResolver(client, testSyncConfig(), nil)

	tracks, err := resolver.Resolve(context.Background(), "token", nil, time.Time{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(tracks) != 0 {
		t.Errorf("expected empty track list, got %v", tracks)
	}

	artists, albums, _, _ := client.calls()
	if artists != 0 || albums != 0 {
		t.Error("zero saved artists should make no upstream calls")
	}
}

func TestResolver_TodayFilter(t *testing.T) {
	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			return []models.Release{
				release("new", "spotify:track:new", "2025-06-02"),
				release("old", "spotify:track:old", "2025-06-01"),
				release("unparseable", "spotify:track:bad", "not-a-date"),
			}, nil
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)
	resolver.now = func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) }

	tracks, err := resolver.Resolve(context.Background(), "token", []string{"artist1"}, time.Time{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(tracks) != 1 || tracks[0] != "spotify:track:new" {
		t.Errorf("expected only today's release, got %v", tracks)
	}
}

func TestResolver_FromDateFilter(t *testing.T) {
	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			return []models.Release{
				release("boundary", "spotify:track:boundary", "2025-05-20"),
				release("after", "spotify:track:after", "2025-05-25"),
				release("before", "spotify:track:before", "2025-05-19"),
			}, nil
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)

	fromDate := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	tracks, err := resolver.Resolve(context.Background(), "token", []string{"artist1"}, fromDate)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []string{"spotify:track:boundary", "spotify:track:after"}
	if len(tracks) != len(want) {
		t.Fatalf("got %v, want %v", tracks, want)
	}
	for i := range want {
		if tracks[i] != want[i] {
			t.Errorf("tracks[%d] = %s, want %s", i, tracks[i], want[i])
		}
	}
}

func TestResolver_AlbumExpansionAndOrder(t *testing.T) {
	fromDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			switch artistID {
			case "artist1":
				return []models.Release{release("alb1", "spotify:album:alb1", "2025-05-02")}, nil
			case "artist2":
				return []models.Release{release("single1", "spotify:track:single1", "2025-05-03")}, nil
			}
			return nil, nil
		},
		albumTrackURIsFn: func(ctx context.Context, token, albumID string) ([]string, error) {
			if albumID != "alb1" {
				t.Errorf("unexpected album expansion: %s", albumID)
			}
			return []string{"spotify:track:a1", "spotify:track:a2"}, nil
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)

	tracks, err := resolver.Resolve(context.Background(), "token", []string{"artist1", "artist2"}, fromDate)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []string{"spotify:track:a1", "spotify:track:a2", "spotify:track:single1"}
	if len(tracks) != len(want) {
		t.Fatalf("got %v, want %v", tracks, want)
	}
	for i := range want {
		if tracks[i] != want[i] {
			t.Errorf("tracks[%d] = %s, want %s", i, tracks[i], want[i])
		}
	}
}

func TestResolver_PerArtistFailureIsolated(t *testing.T) {
	fromDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			if artistID == "broken" {
				return nil, &services.UpstreamError{StatusCode: 500}
			}
			return []models.Release{release(artistID, "spotify:track:"+artistID, "2025-05-02")}, nil
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)

	tracks, err := resolver.Resolve(context.Background(), "token", []string{"artist1", "broken", "artist3"}, fromDate)
	if err != nil {
		t.Fatalf("failed artist should not abort resolution: %v", err)
	}

	want := []string{"spotify:track:artist1", "spotify:track:artist3"}
	if len(tracks) != len(want) {
		t.Fatalf("got %v, want %v", tracks, want)
	}
}

func TestResolver_DuplicatesPreserved(t *testing.T) {
	fromDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			// Both artists feature on the same release.
			return []models.Release{release("shared", "spotify:track:shared", "2025-05-02")}, nil
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)

	tracks, err := resolver.Resolve(context.Background(), "token", []string{"artist1", "artist2"}, fromDate)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(tracks) != 2 {
		t.Errorf("duplicate URIs across artists should be preserved, got %v", tracks)
	}
}

func TestSynchronizer_EmptyResolveSkipsAppend(t *testing.T) {
	env := setupEnv(t)
	user := env.createUser(t, "spotify_user_1", "artist1")

	client := &mockClient{} // no releases at all
	resolver := NewResolver(client, testSyncConfig(), nil)
	synchronizer := NewSynchronizer(client, &mockTokens{}, env.artists, env.playlists, env.users, resolver, "New Release Radar", nil)

	result, err := synchronizer.SyncUser(context.Background(), user, time.Time{})
	if err != nil {
		t.Fatalf("SyncUser() error = %v", err)
	}

	if result.TracksAdded != 0 {
		t.Errorf("expected zero tracks, got %d", result.TracksAdded)
	}

	_, _, adds, creates := client.calls()
	if adds != 0 {
		t.Error("empty resolution must not call the append API")
	}
	if creates != 1 {
		t.Errorf("first sync should create the playlist even with no new releases, got %d creations", creates)
	}

	playlist, err := env.playlists.GetByUser(user.ID())
	if err != nil || playlist == nil {
		t.Fatalf("playlist should be persisted even with no new releases, got %v (err %v)", playlist, err)
	}

	stored, err := env.users.Get(user.ID())
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !stored.HasPlaylist() {
		t.Error("playlist ID should be persisted on the user")
	}
}

func TestSynchronizer_PlaylistCreateOnce(t *testing.T) {
	env := setupEnv(t)
	user := env.createUser(t, "spotify_user_1", "artist1")

	fromDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			return []models.Release{release("r1", "spotify:track:r1", "2025-05-02")}, nil
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)
	synchronizer := NewSynchronizer(client, &mockTokens{}, env.artists, env.playlists, env.users, resolver, "New Release Radar", nil)

	for i := 0; i < 2; i++ {
		result, err := synchronizer.SyncUser(context.Background(), user, fromDate)
		if err != nil {
			t.Fatalf("SyncUser() #%d error = %v", i+1, err)
		}
		if result.TracksAdded != 1 {
			t.Errorf("expected 1 track, got %d", result.TracksAdded)
		}
	}

	_, _, _, creates := client.calls()
	if creates != 1 {
		t.Errorf("playlist should be created exactly once, got %d creations", creates)
	}

	stored, err := env.users.Get(user.ID())
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !stored.HasPlaylist() {
		t.Error("playlist ID should be persisted on the user")
	}

	playlist, err := env.playlists.GetByUser(user.ID())
	if err != nil || playlist == nil {
		t.Fatalf("expected persisted playlist, got %v (err %v)", playlist, err)
	}
	if playlist.SnapshotID() != "snap" {
		t.Errorf("expected snapshot recorded, got %q", playlist.SnapshotID())
	}
}

func TestSynchronizer_MissingSnapshotIsFailure(t *testing.T) {
	env := setupEnv(t)
	user := env.createUser(t, "spotify_user_1", "artist1")

	fromDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			return []models.Release{release("r1", "spotify:track:r1", "2025-05-02")}, nil
		},
		addTracksFn: func(ctx context.Context, token, playlistID string, uris []string) (string, error) {
			return "", nil // 2xx reply without a snapshot
		},
	}

	resolver := NewResolver(client, testSyncConfig(), nil)
	synchronizer := NewSynchronizer(client, &mockTokens{}, env.artists, env.playlists, env.users, resolver, "New Release Radar", nil)

	if _, err := synchronizer.SyncUser(context.Background(), user, fromDate); err == nil {
		t.Error("append without a snapshot must not count as success")
	}
}

func TestScheduler_IdempotentGating(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "spotify_user_1", "artist1")

	now := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	if err := env.entries.Insert(models.NewExecutionLog(now.Add(-10*time.Hour), models.RunSuccess, time.Second)); err != nil {
		t.Fatalf("failed to seed log entry: %v", err)
	}

	client := &mockClient{}
	scheduler := env.newScheduler(t, client, nil, testSchedulerConfig())
	scheduler.now = func() time.Time { return now }

	summary, err := scheduler.ExecuteJob(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("ExecuteJob() error = %v", err)
	}

	if !summary.Skipped {
		t.Error("automatic run within the recency window should be skipped")
	}

	artists, _, _, _ := client.calls()
	if artists != 0 {
		t.Error("skipped run must make no upstream calls")
	}
	if got := env.countLogEntries(t); got != 1 {
		t.Errorf("skipped run must not write a log entry, have %d", got)
	}
}

func TestScheduler_ManualBypassesRecency(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "spotify_user_1", "artist1")

	now := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	if err := env.entries.Insert(models.NewExecutionLog(now.Add(-10*time.Hour), models.RunSuccess, time.Second)); err != nil {
		t.Fatalf("failed to seed log entry: %v", err)
	}

	scheduler := env.newScheduler(t, &mockClient{}, nil, testSchedulerConfig())
	scheduler.now = func() time.Time { return now }

	summary, err := scheduler.ExecuteJob(context.Background(), RunOptions{Manual: true})
	if err != nil {
		t.Fatalf("ExecuteJob() error = %v", err)
	}

	if summary.Skipped {
		t.Error("manual run should bypass the recency gate")
	}
	if got := env.countLogEntries(t); got != 2 {
		t.Errorf("executed run should append exactly one entry, have %d total", got)
	}
}

func TestScheduler_GuardMutualExclusion(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "spotify_user_1", "artist1")

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	tokens := &mockTokens{fn: func(user *models.User) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "token", nil
	}}

	scheduler := env.newScheduler(t, &mockClient{}, tokens, testSchedulerConfig())

	done := make(chan error, 1)
	go func() {
		_, err := scheduler.ExecuteJob(context.Background(), RunOptions{Manual: true})
		done <- err
	}()

	<-started

	if _, err := scheduler.ExecuteJob(context.Background(), RunOptions{Manual: true}); !errors.Is(err, shared.ErrRunActive) {
		t.Errorf("expected ErrRunActive while a run is in flight, got %v", err)
	}
	if got := env.countLogEntries(t); got != 0 {
		t.Errorf("guarded caller must not touch the log store, have %d entries", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	if got := env.countLogEntries(t); got != 1 {
		t.Errorf("expected exactly one entry from the first run, have %d", got)
	}
}

func TestScheduler_PerUserIsolation(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "alice", "artist1")
	broken := env.createUser(t, "bob", "artist1")
	env.createUser(t, "carol", "artist1")

	fromDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			return []models.Release{release(artistID, "spotify:track:"+artistID, "2025-05-02")}, nil
		},
	}

	tokens := &mockTokens{fn: func(user *models.User) (string, error) {
		if user.ID() == broken.ID() {
			return "", fmt.Errorf("refresh token revoked")
		}
		return "token", nil
	}}

	scheduler := env.newScheduler(t, client, tokens, testSchedulerConfig())

	summary, err := scheduler.ExecuteJob(context.Background(), RunOptions{Manual: true, FromDate: fromDate})
	if err != nil {
		t.Fatalf("ExecuteJob() error = %v", err)
	}

	if summary.UsersSynced != 2 || summary.UsersFailed != 1 {
		t.Errorf("expected 2 synced / 1 failed, got %d / %d", summary.UsersSynced, summary.UsersFailed)
	}
	if summary.Status != models.RunSuccess {
		t.Errorf("per-user failures must not flip the run status, got %s", summary.Status)
	}

	latest, err := env.entries.Latest()
	if err != nil || latest == nil {
		t.Fatalf("expected one log entry, got %v (err %v)", latest, err)
	}
	if latest.Status() != models.RunSuccess {
		t.Errorf("log entry status = %s, want SUCCESS", latest.Status())
	}
	if got := env.countLogEntries(t); got != 1 {
		t.Errorf("expected exactly one log entry, have %d", got)
	}
}

func TestScheduler_MissedRunRecovery(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "spotify_user_1", "artist1")

	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	if err := env.entries.Insert(models.NewExecutionLog(now.Add(-30*time.Hour), models.RunSuccess, time.Second)); err != nil {
		t.Fatalf("failed to seed log entry: %v", err)
	}

	var ran atomic.Int32
	client := &mockClient{
		artistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			ran.Add(1)
			return nil, nil
		},
	}

	scheduler := env.newScheduler(t, client, nil, testSchedulerConfig())
	scheduler.now = func() time.Time { return now }

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer scheduler.Stop()

	if ran.Load() == 0 {
		t.Error("stale log entry should trigger an immediate recovery run")
	}
	if got := env.countLogEntries(t); got != 2 {
		t.Errorf("recovery run should append one entry, have %d total", got)
	}
}

func TestScheduler_InitializeRecentRunNoRecovery(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "spotify_user_1", "artist1")

	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	if err := env.entries.Insert(models.NewExecutionLog(now.Add(-2*time.Hour), models.RunSuccess, time.Second)); err != nil {
		t.Fatalf("failed to seed log entry: %v", err)
	}

	client := &mockClient{}
	scheduler := env.newScheduler(t, client, nil, testSchedulerConfig())
	scheduler.now = func() time.Time { return now }

	if err := scheduler.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer scheduler.Stop()

	if got := env.countLogEntries(t); got != 1 {
		t.Errorf("recent run should suppress recovery, have %d entries", got)
	}
}

func TestScheduler_InvalidCronExpression(t *testing.T) {
	env := setupEnv(t)

	config := testSchedulerConfig()
	config.Cron = "not a cron line"

	scheduler := env.newScheduler(t, &mockClient{}, nil, config)
	// A fresh entry suppresses the recovery run so Initialize goes straight
	// to timer registration.
	if err := env.entries.Insert(models.NewExecutionLog(time.Now(), models.RunSuccess, time.Second)); err != nil {
		t.Fatalf("failed to seed log entry: %v", err)
	}

	if err := scheduler.Initialize(context.Background()); err == nil {
		scheduler.Stop()
		t.Error("expected error for invalid cron expression")
	}
}
