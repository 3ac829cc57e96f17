package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

const issuerURL = "https://accounts.google.com"

var (
	// ErrExchange means the provider rejected the authorization code.
	ErrExchange = errors.New("google: code exchange rejected")
	// ErrProfileFetch means the userinfo call failed.
	ErrProfileFetch = errors.New("google: profile fetch failed")
	// ErrReauthRequired means the stored credentials are expired or revoked
	// and cannot be silently refreshed; the user must log in again.
	ErrReauthRequired = errors.New("google: re-login required")
	// ErrCalendarFetch covers provider failures other than credentials.
	ErrCalendarFetch = errors.New("google: calendar fetch failed")
)

// Tokens is the credential pair stored per identity. An empty RefreshToken
// means Google did not issue one.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Profile is the normalized userinfo result.
type Profile struct {
	Subject string
	Email   string
	Name    string
}

// EventsResult carries the fetched events plus any tokens minted during the
// call. Refreshed is nil when the stored access token was still good; the
// caller persists it when set, as an explicit step rather than a callback.
type EventsResult struct {
	Events    []*calendar.Event
	Refreshed *Tokens
}

// Client wraps the Google OAuth endpoints, userinfo, and the Calendar API.
// Each call builds its own token source, so one user's refresh can never
// leak onto another's in-flight request.
type Client struct {
	cfg        *oauth2.Config
	provider   *oidc.Provider
	maxResults int64
	now        func() time.Time
}

func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
	maxResults int64,
) (*Client, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
			calendar.CalendarReadonlyScope,
		},
	}

	return &Client{
		cfg:        oauthCfg,
		provider:   oidcProvider,
		maxResults: maxResults,
		now:        time.Now,
	}, nil
}

// AuthCodeURL builds the authorization URL. Offline access plus forced
// consent makes Google issue a refresh token even when the user granted
// the scopes before.
func (c *Client) AuthCodeURL(state string, codeChallenge string) string {
	return c.cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange swaps the authorization code for a token pair.
func (c *Client) Exchange(ctx context.Context, code string, codeVerifier string) (Tokens, error) {
	token, err := c.cfg.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	return Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// FetchProfile resolves the access token to the user's subject id, email,
// and display name via the OIDC userinfo endpoint.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	info, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
	}))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	var claims struct {
		Name string `json:"name"`
	}
	if err := info.Claims(&claims); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}

	if info.Subject == "" {
		return Profile{}, fmt.Errorf("%w: userinfo missing subject", ErrProfileFetch)
	}

	return Profile{
		Subject: info.Subject,
		Email:   info.Email,
		Name:    claims.Name,
	}, nil
}

func classifyTokenErr(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil &&
			(rerr.Response.StatusCode == http.StatusBadRequest ||
				rerr.Response.StatusCode == http.StatusUnauthorized) {
			// invalid_grant: the refresh token is expired or revoked
			return fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCalendarFetch, err)
}
