package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Events are fetched for the week behind and the month ahead of now.
const eventLookbehind = 7 * 24 * time.Hour

// FetchEvents lists the user's primary-calendar events inside the fixed
// window, recurring events expanded into single instances, sorted by start
// time. A stale access token is refreshed through the token source before
// the call; the new pair is handed back in the result for the caller to
// persist.
func (c *Client) FetchEvents(ctx context.Context, t Tokens) (EventsResult, error) {
	stored := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
	if stored.Expiry.IsZero() {
		// oauth2 treats a zero expiry as never-expiring; without a known
		// expiry the safe move is to refresh up front
		stored.Expiry = c.now().Add(-time.Minute)
	}

	ts := c.cfg.TokenSource(ctx, stored)
	latest, err := ts.Token()
	if err != nil {
		return EventsResult{}, classifyTokenErr(err)
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(latest)))
	if err != nil {
		return EventsResult{}, fmt.Errorf("%w: %v", ErrCalendarFetch, err)
	}

	timeMin, timeMax := eventWindow(c.now())

	resp, err := svc.Events.List("primary").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(c.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return EventsResult{}, classifyCalendarErr(err)
	}

	return EventsResult{
		Events:    resp.Items,
		Refreshed: refreshedTokens(t, latest),
	}, nil
}

func eventWindow(now time.Time) (timeMin, timeMax time.Time) {
	return now.Add(-eventLookbehind), now.AddDate(0, 1, 0)
}

// refreshedTokens reports the pair to persist, or nil when the token source
// returned the stored credentials untouched.
func refreshedTokens(stored Tokens, latest *oauth2.Token) *Tokens {
	if latest.AccessToken == stored.AccessToken &&
		(latest.RefreshToken == "" || latest.RefreshToken == stored.RefreshToken) {
		return nil
	}
	return &Tokens{
		AccessToken:  latest.AccessToken,
		RefreshToken: latest.RefreshToken,
		Expiry:       latest.Expiry,
	}
}

func classifyCalendarErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCalendarFetch, err)
}
