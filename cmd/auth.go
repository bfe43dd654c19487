package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/server"
	"github.com/desertthunder/releaseradar/internal/services"
	"github.com/desertthunder/releaseradar/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the browser OAuth flow and registers the authorized account
// for nightly synchronization.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	spotify := r.config.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client credentials are not configured", shared.ErrMissingCredentials)
	}

	app, err := r.build()
	if err != nil {
		return err
	}
	defer app.close()

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	profile, err := r.client.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	user, err := app.users.GetBySpotifyID(profile.ID)
	switch {
	case errors.Is(err, shared.ErrUserNotFound):
		user = models.NewUser(0, profile.ID, profile.DisplayName)
		user.SetTokens(token.AccessToken, token.RefreshToken, token.Expiry)
		if err := app.users.Create(user); err != nil {
			return fmt.Errorf("failed to register user: %w", err)
		}
		r.logger.Info("registered new user", "spotify_id", profile.ID)
	case err != nil:
		return fmt.Errorf("failed to look up user: %w", err)
	default:
		user.SetTokens(token.AccessToken, token.RefreshToken, token.Expiry)
		if err := app.users.UpdateTokens(user); err != nil {
			return fmt.Errorf("failed to store tokens: %w", err)
		}
		r.logger.Info("refreshed credentials for existing user", "spotify_id", profile.ID)
	}

	r.writePlain("✓ Authorized %s (%s)\n", profile.DisplayName, profile.ID)
	r.writePlain("Next: import followed artists with 'releaseradar artists follow --user %s'\n", profile.ID)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	spotify := r.config.Credentials.Spotify
	oauthConfig := services.OAuthConfig(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI)

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("authorization timed out after 2 minutes")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	return result.Token, nil
}
