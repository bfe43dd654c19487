package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/urfave/cli/v3"
)

// UsersList prints the registered users.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	users, err := app.users.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if cmd.Bool("json") {
		rows := make([]map[string]any, 0, len(users))
		for _, user := range users {
			rows = append(rows, map[string]any{
				"spotify_id":   user.SpotifyID(),
				"display_name": user.DisplayName(),
				"playlist_id":  user.PlaylistID(),
				"created_at":   user.CreatedAt(),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(users) == 0 {
		return r.writePlain("No users registered\n")
	}

	for _, user := range users {
		playlist := user.PlaylistID()
		if playlist == "" {
			playlist = "(no playlist yet)"
		}
		r.writePlain("%s  %s  %s  registered %s\n",
			user.SpotifyID(), user.DisplayName(), playlist,
			user.CreatedAt().Format(time.DateOnly))
	}
	return nil
}

// resolveUser looks up a user by the --user flag's Spotify profile ID.
func (r *Runner) resolveUser(app *app, cmd *cli.Command) (*models.User, error) {
	spotifyID := cmd.String("user")
	user, err := app.users.GetBySpotifyID(spotifyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %q: %w", spotifyID, err)
	}
	return user, nil
}

// ArtistsList prints a user's saved artists.
func (r *Runner) ArtistsList(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	user, err := r.resolveUser(app, cmd)
	if err != nil {
		return err
	}

	artists, err := app.artists.ListByUser(user.ID())
	if err != nil {
		return fmt.Errorf("failed to list artists: %w", err)
	}

	if cmd.Bool("json") {
		rows := make([]map[string]any, 0, len(artists))
		for _, artist := range artists {
			rows = append(rows, map[string]any{
				"spotify_id": artist.SpotifyID(),
				"name":       artist.Name(),
				"uri":        artist.URI(),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(artists) == 0 {
		return r.writePlain("No saved artists for %s\n", user.SpotifyID())
	}

	for i, artist := range artists {
		r.writePlain("%d. %s (%s)\n", i+1, artist.Name(), artist.SpotifyID())
	}
	return nil
}

// ArtistsFollow saves artists for a user: a single artist with --id, or the
// user's full upstream followed-artist list otherwise.
func (r *Runner) ArtistsFollow(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	user, err := r.resolveUser(app, cmd)
	if err != nil {
		return err
	}

	if artistID := cmd.String("id"); artistID != "" {
		artist := models.NewArtist(0, user.ID(), artistID, artistID)
		if err := app.artists.Save(artist); err != nil {
			return fmt.Errorf("failed to save artist: %w", err)
		}
		return r.writePlain("✓ Saved artist %s for %s\n", artistID, user.SpotifyID())
	}

	token, err := app.auth.AccessToken(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	followed, err := r.client.FollowedArtists(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch followed artists: %w", err)
	}

	saved := 0
	for _, entry := range followed {
		artist := models.NewArtist(0, user.ID(), entry.ID, entry.Name)
		artist.SetURI(entry.URI)
		artist.SetImageURL(entry.ImageURL)

		if err := app.artists.Save(artist); err != nil {
			r.logger.Warn("failed to save artist", "artist_id", entry.ID, "error", err)
			continue
		}
		saved++
	}

	return r.writePlain("✓ Imported %d followed artists for %s\n", saved, user.SpotifyID())
}

// ArtistsUnfollow removes a saved artist from a user.
func (r *Runner) ArtistsUnfollow(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	user, err := r.resolveUser(app, cmd)
	if err != nil {
		return err
	}

	artistID := cmd.String("id")
	if err := app.artists.Remove(user.ID(), artistID); err != nil {
		return fmt.Errorf("failed to remove artist: %w", err)
	}

	return r.writePlain("✓ Removed artist %s from %s\n", artistID, user.SpotifyID())
}
