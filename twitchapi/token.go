package twitchapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource fetches and caches a Twitch app access (client credentials)
// token used to authorize Helix requests; the GQL comment feed is called
// without it. This token cannot authorize live IRC chat, which this package
// does not use.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client

	mu  sync.Mutex
	src oauth2.TokenSource
}

// SetToken seeds the cache directly, bypassing the client-credentials flow.
// Used by tests to avoid a live token exchange.
func (ts *TokenSource) SetToken(accessToken string, expiresAt time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.src = oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		Expiry:      expiresAt,
	})
}

// Get returns a valid (fresh or cached) app access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.src == nil {
		if ts.ClientID == "" || ts.ClientSecret == "" {
			return "", errors.New("missing client id/secret for twitch app token")
		}
		cfg := &clientcredentials.Config{
			ClientID:     ts.ClientID,
			ClientSecret: ts.ClientSecret,
			TokenURL:     "https://id.twitch.tv/oauth2/token",
		}
		hc := ts.HTTPClient
		if hc == nil {
			hc = http.DefaultClient
		}
		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, hc)
		ts.src = cfg.TokenSource(tokenCtx)
	}

	tok, err := ts.src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
