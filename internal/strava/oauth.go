package strava

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/i474232898/strava-weather/internal/store"
)

// AuthCodeURL returns the Strava consent page URL.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// Exchange trades an authorization code for tokens and stores them under the
// athlete id Strava returns alongside the token.
func (c *Client) Exchange(ctx context.Context, code string) (store.Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return store.Tokens{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	athleteID, ok := athleteIDFromExtra(tok.Extra("athlete"))
	if !ok {
		return store.Tokens{}, errors.New("token response has no athlete id")
	}

	t := store.Tokens{
		AthleteID:    athleteID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	if err := c.tokens.SaveTokens(ctx, t); err != nil {
		return store.Tokens{}, err
	}

	c.logger.Info("athlete authorized", "athlete_id", athleteID)
	return t, nil
}
