package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/i474232898/strava-weather/internal/activity"
	"github.com/i474232898/strava-weather/internal/store"
)

const (
	defaultBaseURL  = "https://www.strava.com/api/v3"
	defaultAuthURL  = "https://www.strava.com/oauth/authorize"
	defaultTokenURL = "https://www.strava.com/oauth/token"

	// Strava expects a comma separated scope list in a single parameter.
	scope = "read,activity:write,activity:read_all"

	maxErrorBody = 500
)

// ErrNotAuthorized is returned when the athlete has no usable tokens.
var ErrNotAuthorized = errors.New("athlete has not authorized the app")

// TokenStore loads and persists athlete OAuth tokens.
type TokenStore interface {
	GetTokens(ctx context.Context, athleteID int64) (store.Tokens, error)
	SaveTokens(ctx context.Context, t store.Tokens) error
}

// Config holds the Strava application credentials. The URL fields are
// optional and default to the public Strava endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	BaseURL  string
	AuthURL  string
	TokenURL string
}

// Client reads and updates activities on behalf of athletes.
type Client struct {
	oauth        *oauth2.Config
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	tokens       TokenStore
	logger       *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, tokens TokenStore, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   valueOr(cfg.AuthURL, defaultAuthURL),
				TokenURL:  valueOr(cfg.TokenURL, defaultTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL:      valueOr(cfg.BaseURL, defaultBaseURL),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   httpClient,
		tokens:       tokens,
		logger:       logger,
	}
}

// GetActivity returns a detailed activity of the athlete.
func (c *Client) GetActivity(ctx context.Context, athleteID, activityID int64) (activity.Activity, error) {
	hc, err := c.clientFor(ctx, athleteID)
	if err != nil {
		return activity.Activity{}, err
	}

	u := fmt.Sprintf("%s/activities/%d", c.baseURL, activityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "get activity"); err != nil {
		return activity.Activity{}, err
	}

	var a activity.Activity
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return activity.Activity{}, fmt.Errorf("failed to parse activity: %w", err)
	}
	return a, nil
}

// ModifyActivity writes the patch to the activity.
func (c *Client) ModifyActivity(ctx context.Context, athleteID, activityID int64, patch activity.Patch) error {
	hc, err := c.clientFor(ctx, athleteID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	u := fmt.Sprintf("%s/activities/%d", c.baseURL, activityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	return checkResponse(resp, "modify activity")
}

// IsAppSubscribed reports whether the application has an active webhook
// push subscription.
func (c *Client) IsAppSubscribed(ctx context.Context) (bool, error) {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)

	u := fmt.Sprintf("%s/push_subscriptions?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "list push subscriptions"); err != nil {
		return false, err
	}

	var subs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&subs); err != nil {
		return false, fmt.Errorf("failed to parse push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return false, nil
	}
	_, ok := subs[0]["id"]
	return ok, nil
}

// clientFor returns an HTTP client authorized as the athlete, refreshing and
// persisting the access token when it has expired.
func (c *Client) clientFor(ctx context.Context, athleteID int64) (*http.Client, error) {
	stored, err := c.tokens.GetTokens(ctx, athleteID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: athlete %d", ErrNotAuthorized, athleteID)
	}
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Unix(stored.ExpiresAt, 0),
	}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token for athlete %d: %v", ErrNotAuthorized, athleteID, err)
	}

	if tok.AccessToken != stored.AccessToken {
		refreshed := store.Tokens{
			AthleteID:    athleteID,
			AccessToken:  tok.AccessToken,
			RefreshToken: valueOr(tok.RefreshToken, stored.RefreshToken),
			ExpiresAt:    tok.Expiry.Unix(),
		}
		if err := c.tokens.SaveTokens(ctx, refreshed); err != nil {
			c.logger.Error("failed to persist refreshed token", "athlete_id", athleteID, "error", err)
		} else {
			c.logger.Info("access token refreshed", "athlete_id", athleteID)
		}
	}

	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)), nil
}

func checkResponse(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("%s: strava api error (status %d): %s", op, resp.StatusCode, body)
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}
	return err
}

func valueOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func athleteIDFromExtra(v any) (int64, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	switch id := m["id"].(type) {
	case float64:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		return n, err == nil
	}
	return 0, false
}
