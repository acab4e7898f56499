package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/strava-weather/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
    id            INTEGER PRIMARY KEY,  -- Strava athlete id
    access_token  TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    expires_at    INTEGER NOT NULL      -- unix seconds
);
CREATE TABLE IF NOT EXISTS settings (
    id       INTEGER PRIMARY KEY,
    icon     INTEGER NOT NULL DEFAULT 0,
    humidity INTEGER NOT NULL DEFAULT 1,
    wind     INTEGER NOT NULL DEFAULT 1,
    aqi      INTEGER NOT NULL DEFAULT 1,
    lan      TEXT NOT NULL DEFAULT 'en'
);`

// Tokens are the OAuth credentials of one athlete.
type Tokens struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// SQLiteStore persists athlete tokens and description settings.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path and makes
// sure the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetTokens returns the stored tokens of an athlete, or ErrNotFound.
func (s *SQLiteStore) GetTokens(ctx context.Context, athleteID int64) (Tokens, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, access_token, refresh_token, expires_at FROM subscribers WHERE id = ?`, athleteID)

	var t Tokens
	err := row.Scan(&t.AthleteID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Tokens{}, ErrNotFound
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to get tokens: %w", err)
	}
	return t, nil
}

// SaveTokens inserts tokens for a new athlete, or updates them when the
// access token changed.
func (s *SQLiteStore) SaveTokens(ctx context.Context, t Tokens) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO subscribers (id, access_token, refresh_token, expires_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            access_token = excluded.access_token,
            refresh_token = excluded.refresh_token,
            expires_at = excluded.expires_at
        WHERE excluded.access_token != subscribers.access_token`,
		t.AthleteID, t.AccessToken, t.RefreshToken, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// GetSettings returns the athlete's settings, or the defaults when none were
// saved.
func (s *SQLiteStore) GetSettings(ctx context.Context, athleteID int64) (weather.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, icon, humidity, wind, aqi, lan FROM settings WHERE id = ?`, athleteID)

	var (
		st   weather.Settings
		lang string
	)
	err := row.Scan(&st.UserID, &st.ShowIcon, &st.ShowHumidity, &st.ShowWind, &st.ShowAirQuality, &lang)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.DefaultSettings(athleteID), nil
	}
	if err != nil {
		return weather.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	st.Language = weather.Language(lang)
	return st, nil
}

// SaveSettings stores the athlete's settings. Unchanged settings, and default
// settings for an athlete without a row, are not written.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st weather.Settings) error {
	current, err := s.GetSettings(ctx, st.UserID)
	if err != nil {
		return err
	}
	if current == st {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO settings (id, icon, humidity, wind, aqi, lan) VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            icon = excluded.icon,
            humidity = excluded.humidity,
            wind = excluded.wind,
            aqi = excluded.aqi,
            lan = excluded.lan`,
		st.UserID, st.ShowIcon, st.ShowHumidity, st.ShowWind, st.ShowAirQuality, string(st.Language))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// DeleteAthlete removes the athlete's tokens and settings.
func (s *SQLiteStore) DeleteAthlete(ctx context.Context, athleteID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, athleteID); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE id = ?`, athleteID); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return tx.Commit()
}

// CountSubscribers returns the number of athletes with stored tokens.
func (s *SQLiteStore) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return n, nil
}
