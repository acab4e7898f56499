package strava

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/strava-weather/internal/activity"
	"github.com/i474232898/strava-weather/internal/store"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[int64]store.Tokens
	saves  int
}

func newMemTokens(ts ...store.Tokens) *memTokens {
	m := &memTokens{tokens: make(map[int64]store.Tokens)}
	for _, t := range ts {
		m.tokens[t.AthleteID] = t
	}
	return m
}

func (m *memTokens) GetTokens(ctx context.Context, athleteID int64) (store.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[athleteID]
	if !ok {
		return store.Tokens{}, store.ErrNotFound
	}
	return t, nil
}

func (m *memTokens) SaveTokens(ctx context.Context, t store.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.AthleteID] = t
	m.saves++
	return nil
}

type fakeStrava struct {
	t *testing.T

	mu           sync.Mutex
	tokenForm    url.Values
	lastAuth     string
	lastPatch    map[string]any
	subscription string
}

func (f *fakeStrava) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(f.t, r.ParseForm())
		f.mu.Lock()
		f.tokenForm = r.PostForm
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"token_type":    "Bearer",
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"expires_in":    21600,
		}
		if r.PostForm.Get("grant_type") == "authorization_code" {
			body["athlete"] = map[string]any{"id": 1234, "username": "runner"}
		}
		json.NewEncoder(w).Encode(body)
	})

	mux.HandleFunc("/api/activities/77", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{
              "id": 77, "name": "Lunch Ride", "manual": false, "trainer": false, "type": "Ride",
              "description": null, "start_date": "2023-06-01T10:00:00Z", "elapsed_time": 5400,
              "start_latlng": [48.85, 2.35]
            }`))
		case http.MethodPut:
			var patch map[string]any
			assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch))
			f.mu.Lock()
			f.lastPatch = patch
			f.mu.Unlock()
			w.Write([]byte(`{"id": 77}`))
		}
	})

	mux.HandleFunc("/api/activities/401", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Authorization Error"}`))
	})

	mux.HandleFunc("/api/push_subscriptions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "client-id", r.URL.Query().Get("client_id"))
		assert.Equal(f.t, "client-secret", r.URL.Query().Get("client_secret"))
		w.Write([]byte(f.subscription))
	})

	return mux
}

func newTestClient(t *testing.T, tokens TokenStore) (*Client, *fakeStrava) {
	t.Helper()

	fake := &fakeStrava{t: t, subscription: `[]`}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/callback",
		BaseURL:      srv.URL + "/api",
		AuthURL:      srv.URL + "/oauth/authorize",
		TokenURL:     srv.URL + "/oauth/token",
	}, srv.Client(), tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, fake
}

func validTokens(athleteID int64) store.Tokens {
	return store.Tokens{
		AthleteID:    athleteID,
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func TestGetActivity(t *testing.T) {
	c, fake := newTestClient(t, newMemTokens(validTokens(1)))

	a, err := c.GetActivity(context.Background(), 1, 77)
	require.NoError(t, err)

	assert.Equal(t, int64(77), a.ID)
	assert.Equal(t, "Lunch Ride", a.Name)
	assert.Equal(t, "Ride", a.Type)
	assert.Nil(t, a.Description)
	assert.Equal(t, 5400, a.ElapsedTime)
	assert.Equal(t, []float64{48.85, 2.35}, a.StartLatLng)
	assert.Equal(t, "Bearer stored-access", fake.lastAuth)
	assert.Nil(t, fake.tokenForm, "valid token must not be refreshed")
}

func TestModifyActivity(t *testing.T) {
	c, fake := newTestClient(t, newMemTokens(validTokens(1)))

	err := c.ModifyActivity(context.Background(), 1, 77, activity.Patch{Description: "Clear sky, 🌡 20°C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"description": "Clear sky, 🌡 20°C"}, fake.lastPatch)

	err = c.ModifyActivity(context.Background(), 1, 77, activity.Patch{Name: "☀️ Ride", Description: "x"})
	require.NoError(t, err)
	assert.Equal(t, "☀️ Ride", fake.lastPatch["name"])
}

func TestExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	expired := validTokens(1)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	tokens := newMemTokens(expired)

	c, fake := newTestClient(t, tokens)

	_, err := c.GetActivity(context.Background(), 1, 77)
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", fake.tokenForm.Get("grant_type"))
	assert.Equal(t, "stored-refresh", fake.tokenForm.Get("refresh_token"))
	assert.Equal(t, "client-id", fake.tokenForm.Get("client_id"))
	assert.Equal(t, "Bearer fresh-access", fake.lastAuth)

	saved, err := tokens.GetTokens(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", saved.AccessToken)
	assert.Equal(t, "fresh-refresh", saved.RefreshToken)
	assert.Greater(t, saved.ExpiresAt, time.Now().Unix())
	assert.Equal(t, 1, tokens.saves)
}

func TestUnknownAthleteIsNotAuthorized(t *testing.T) {
	c, _ := newTestClient(t, newMemTokens())

	_, err := c.GetActivity(context.Background(), 99, 77)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestUnauthorizedResponse(t *testing.T) {
	c, _ := newTestClient(t, newMemTokens(validTokens(1)))

	_, err := c.GetActivity(context.Background(), 1, 401)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestIsAppSubscribed(t *testing.T) {
	c, fake := newTestClient(t, newMemTokens())

	ok, err := c.IsAppSubscribed(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	fake.subscription = `[{"id": 120475, "application_id": 1, "callback_url": "https://example.com/webhook"}]`
	ok, err = c.IsAppSubscribed(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAppSubscribedMalformedBody(t *testing.T) {
	c, fake := newTestClient(t, newMemTokens())
	fake.subscription = `<html>maintenance</html>`

	ok, err := c.IsAppSubscribed(context.Background())
	assert.ErrorContains(t, err, "failed to parse push subscriptions")
	assert.False(t, ok)
}

func TestAuthCodeURL(t *testing.T) {
	c, _ := newTestClient(t, newMemTokens())

	u, err := url.Parse(c.AuthCodeURL("state-1"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/oauth/authorize", u.Path)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "auto", q.Get("approval_prompt"))
	assert.Equal(t, "read,activity:write,activity:read_all", q.Get("scope"))
}

func TestExchange(t *testing.T) {
	tokens := newMemTokens()
	c, fake := newTestClient(t, tokens)

	got, err := c.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", fake.tokenForm.Get("grant_type"))
	assert.Equal(t, "auth-code", fake.tokenForm.Get("code"))
	assert.Equal(t, int64(1234), got.AthleteID)

	saved, err := tokens.GetTokens(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, got, saved)
}
