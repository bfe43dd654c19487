package tasks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/services"
	"github.com/desertthunder/releaseradar/internal/shared"
	"golang.org/x/time/rate"
)

// Resolver transforms a user's saved artist IDs into track URIs ready to
// append to a playlist.
//
// Upstream traffic is bounded twice: a worker pool caps in-flight fetches and
// a shared rate limiter caps request frequency. Per-artist and per-album
// failures are logged and contribute an empty result; they never abort the
// resolution.
type Resolver struct {
	client      services.Client
	logger      *log.Logger
	limiter     *rate.Limiter
	artistLimit int
	numWorkers  int
	now         func() time.Time
}

// NewResolver creates a Resolver bounded by the given sync configuration.
func NewResolver(client services.Client, config shared.SyncConfig, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if config.ArtistLimit <= 0 {
		config.ArtistLimit = services.DefaultReleaseLimit
	}
	if config.NumWorkers <= 0 {
		config.NumWorkers = 5
	}
	if config.NumWorkers > 10 {
		config.NumWorkers = 10
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5.0
	}

	return &Resolver{
		client:      client,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		artistLimit: config.ArtistLimit,
		numWorkers:  config.NumWorkers,
		now:         time.Now,
	}
}

// Resolve returns the track URIs for releases by the given artists.
//
// A zero fromDate keeps only releases dated today (UTC); otherwise releases
// dated fromDate or later are kept. Output order is artist iteration order,
// then upstream album track order. Duplicate URIs across artists are
// preserved.
func (r *Resolver) Resolve(ctx context.Context, token string, artistIDs []string, fromDate time.Time) ([]string, error) {
	if len(artistIDs) == 0 {
		return []string{}, nil
	}

	releasesByArtist := make([][]models.Release, len(artistIDs))

	err := r.runPool(ctx, len(artistIDs), func(ctx context.Context, i int) {
		artistID := artistIDs[i]

		releases, err := r.client.ArtistReleases(ctx, token, artistID, r.artistLimit)
		if err != nil {
			r.logger.Warn("artist fetch failed, skipping", "artist_id", artistID, "error", err)
			return
		}

		var kept []models.Release
		for _, release := range releases {
			if r.matchesDate(release, fromDate) {
				kept = append(kept, release)
			}
		}
		releasesByArtist[i] = kept
	})
	if err != nil {
		return nil, err
	}

	var candidates []models.Release
	for _, releases := range releasesByArtist {
		candidates = append(candidates, releases...)
	}
	if len(candidates) == 0 {
		return []string{}, nil
	}

	urisByCandidate := make([][]string, len(candidates))
	var albumIndexes []int
	for i, candidate := range candidates {
		if strings.Contains(candidate.URI, "album") {
			albumIndexes = append(albumIndexes, i)
		} else {
			urisByCandidate[i] = []string{candidate.URI}
		}
	}

	err = r.runPool(ctx, len(albumIndexes), func(ctx context.Context, j int) {
		candidate := candidates[albumIndexes[j]]

		uris, err := r.client.AlbumTrackURIs(ctx, token, candidate.ID)
		if err != nil {
			r.logger.Warn("album expansion failed, skipping", "album_id", candidate.ID, "error", err)
			return
		}
		urisByCandidate[albumIndexes[j]] = uris
	})
	if err != nil {
		return nil, err
	}

	var tracks []string
	for _, uris := range urisByCandidate {
		tracks = append(tracks, uris...)
	}
	if tracks == nil {
		tracks = []string{}
	}
	return tracks, nil
}

// runPool executes fn for each index in [0, n) across the bounded worker
// pool, waiting on the shared rate limiter before each call. Returns early
// only on context cancellation.
func (r *Resolver) runPool(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n == 0 {
		return nil
	}

	workers := r.numWorkers
	if workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := r.limiter.Wait(ctx); err != nil {
					return
				}
				fn(ctx, i)
			}
		}()
	}
	wg.Wait()

	return ctx.Err()
}

// matchesDate applies the release date filter.
func (r *Resolver) matchesDate(release models.Release, fromDate time.Time) bool {
	released := release.ReleasedAt()
	if released.IsZero() {
		return false
	}

	if !fromDate.IsZero() {
		return !released.Before(fromDate)
	}

	today := r.now().UTC()
	return released.Year() == today.Year() && released.YearDay() == today.YearDay()
}
