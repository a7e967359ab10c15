// Package integration contains the clients for external services: the
// Todoist REST API, Google Calendar, and the OpenAI-compatible chat model
// behind the planner and the auto-categorizer.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/taskpilot/taskpilot/internal/availability"
)

const (
	// credentialsFile is the Google API client secrets file, shared by all
	// accounts.
	credentialsFile = "google_credentials.json"

	// tokenFilePattern names the per-account OAuth token file.
	tokenFilePattern = "google_token_%s.json"
)

// googleBusyLister reads busy events through the Calendar API, one
// authenticated service per account.
type googleBusyLister struct {
	services map[string]*calendar.Service
}

// NewGoogleBusyLister builds a BusyLister with one Calendar service per
// account. Every account must already hold a token file in configDir,
// written by the authorize flow.
func NewGoogleBusyLister(ctx context.Context, configDir string, accounts []string) (availability.BusyLister, error) {
	services := make(map[string]*calendar.Service, len(accounts))
	for _, account := range accounts {
		srv, err := calendarService(ctx, configDir, account)
		if err != nil {
			return nil, fmt.Errorf("building calendar service for account %s: %w", account, err)
		}
		services[account] = srv
	}
	return &googleBusyLister{services: services}, nil
}

// ListBusy fetches the events overlapping the window from one calendar
// and converts them to busy intervals. All-day events (date-only, no
// dateTime) contribute no busy time.
func (g *googleBusyLister) ListBusy(ctx context.Context, src availability.Source, window availability.Interval) ([]availability.Interval, error) {
	srv, ok := g.services[src.Account]
	if !ok {
		return nil, fmt.Errorf("no authorized service for account %s", src.Account)
	}

	call := srv.Events.List(src.CalendarID).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing events from %s: %w", src.CalendarID, err)
	}

	var busy []availability.Interval
	for _, ev := range events.Items {
		if ev.Start == nil || ev.End == nil {
			continue
		}
		if ev.Start.DateTime == "" || ev.End.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, ev.End.DateTime)
		if err != nil {
			continue
		}
		busy = append(busy, availability.Interval{Start: start, End: end})
	}
	return busy, nil
}

// calendarService builds an authenticated Calendar service from the
// shared credentials file and the account's saved token.
func calendarService(ctx context.Context, configDir, account string) (*calendar.Service, error) {
	config, err := oauthConfig(configDir)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenPath(configDir, account))
	if err != nil {
		return nil, fmt.Errorf("loading token for account %s (run taskpilot authorize first): %w", account, err)
	}

	client := config.Client(ctx, tok)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return srv, nil
}

// oauthConfig loads the client secrets file into an oauth2.Config scoped
// to read-only calendar access.
func oauthConfig(configDir string) (*oauth2.Config, error) {
	path := filepath.Join(configDir, credentialsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client secrets file %s: %w", path, err)
	}
	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets file: %w", err)
	}
	return config, nil
}

// AuthURL returns the consent URL for the manual authorization flow.
// AccessTypeOffline ensures a refresh token is returned.
func AuthURL(configDir string) (string, error) {
	config, err := oauthConfig(configDir)
	if err != nil {
		return "", err
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// ExchangeAndSave swaps an authorization code for a token and saves it
// under the account's token file.
func ExchangeAndSave(ctx context.Context, configDir, account, code string) error {
	config, err := oauthConfig(configDir)
	if err != nil {
		return err
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return saveToken(tokenPath(configDir, account), tok)
}

func tokenPath(configDir, account string) string {
	return filepath.Join(configDir, fmt.Sprintf(tokenFilePattern, account))
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token file %s: %w", path, err)
	}
	return tok, nil
}

// saveToken writes an oauth2.Token to a JSON file readable only by the
// owner.
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
