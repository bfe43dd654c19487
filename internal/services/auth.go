package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/shared"
	"golang.org/x/oauth2"
)

// expirySkew refreshes tokens slightly before their recorded expiry so a token
// does not lapse mid-run.
const expirySkew = time.Minute

// TokenPersister stores rotated credentials back onto the user record.
type TokenPersister interface {
	UpdateTokens(user *models.User) error
}

// Authenticator produces currently-valid access tokens for users, refreshing
// through the OAuth token endpoint when the stored token has expired.
//
// A refresh failure is a per-user failure; the caller must not let it abort
// sibling users.
type Authenticator struct {
	config *oauth2.Config
	store  TokenPersister
	logger *log.Logger
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator backed by the given OAuth config
// and token store.
func NewAuthenticator(config *oauth2.Config, store TokenPersister, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Authenticator{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AuthURL returns the authorization URL for the login flow.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// AccessToken returns a currently-valid access token for the user, refreshing
// and persisting rotated credentials when the stored token has expired.
func (a *Authenticator) AccessToken(ctx context.Context, user *models.User) (string, error) {
	if user.AccessToken() != "" && a.now().Add(expirySkew).Before(user.TokenExpiry()) {
		return user.AccessToken(), nil
	}

	return a.Refresh(ctx, user)
}

// Refresh forces a token refresh for the user and persists the rotated pair.
// Used directly when an upstream call reports 401 despite an unexpired token.
func (a *Authenticator) Refresh(ctx context.Context, user *models.User) (string, error) {
	if user.RefreshToken() == "" {
		return "", fmt.Errorf("%w: user %s", shared.ErrNoRefreshToken, user.ID())
	}

	source := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: user.RefreshToken()})

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	user.SetTokens(token.AccessToken, token.RefreshToken, token.Expiry)

	if err := a.store.UpdateTokens(user); err != nil {
		// The refreshed token is still valid for this run even if persistence failed.
		a.logger.Warn("failed to persist refreshed tokens", "user", user.ID(), "err", err)
	}

	return token.AccessToken, nil
}
