package google

import (
	"context"
	"fmt"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/store"
	"github.com/felipeadeildo/insper-sync/internal/syncerr"
	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// TokenManager owns the refresh-on-expiry lifecycle of a user's Google
// OAuth credentials (C6).
type TokenManager struct {
	config *oauth2.Config
	users  *store.UserStore
}

// NewTokenManager builds a TokenManager against the given OAuth client
// registration. Scopes request full calendar read/write, since the
// reconciler both reads existing markered events and creates/updates/
// deletes them.
func NewTokenManager(clientID, clientSecret, redirectURL string, users *store.UserStore) *TokenManager {
	return &TokenManager{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     oauthgoogle.Endpoint,
		},
		users: users,
	}
}

// GetAuthorizationURL builds the consent URL with offline access and
// forced consent, so a refresh token is issued on every grant.
func (m *TokenManager) GetAuthorizationURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode performs the authorization_code grant.
func (m *TokenManager) ExchangeCode(ctx context.Context, code string) (*store.OAuthCredentials, error) {
	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, syncerr.NewAuthError("google.ExchangeCode", err, true)
	}
	return &store.OAuthCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}, nil
}

// GetValidAccessToken returns a bearer token for user, refreshing it
// first when the stored token has expired. An expiry exactly equal to
// now counts as expired (spec boundary), tighter than allowing any
// grace window.
func (m *TokenManager) GetValidAccessToken(ctx context.Context, user *store.User) (string, error) {
	if user.OAuth.RefreshToken == "" {
		return "", syncerr.NewAuthError("google.GetValidAccessToken",
			fmt.Errorf("user %s has no refresh token on file", user.ID), true)
	}

	if user.OAuth.Expiry.After(time.Now()) {
		return user.OAuth.AccessToken, nil
	}

	token := &oauth2.Token{
		AccessToken:  user.OAuth.AccessToken,
		RefreshToken: user.OAuth.RefreshToken,
		TokenType:    user.OAuth.TokenType,
		Expiry:       user.OAuth.Expiry,
	}

	src := m.config.TokenSource(ctx, token)
	refreshed, err := src.Token()
	if err != nil {
		return "", syncerr.NewAuthError("google.GetValidAccessToken", err, false)
	}

	creds := store.OAuthCredentials{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		TokenType:    refreshed.TokenType,
		Expiry:       refreshed.Expiry,
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = user.OAuth.RefreshToken
	}

	if err := m.users.UpdateOAuthCredentials(ctx, user.ID, creds); err != nil {
		return "", fmt.Errorf("persist refreshed oauth credentials: %w", err)
	}
	user.OAuth = creds

	return creds.AccessToken, nil
}
