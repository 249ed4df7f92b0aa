package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultExpiresIn = time.Hour

// Config represents the OAuth client registered with Google.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
	// Endpoint overrides google.Endpoint (tests).
	Endpoint *oauth2.Endpoint
}

// TokenAuthority exchanges authorization codes and refreshes host tokens.
type TokenAuthority struct {
	oauth2Config *oauth2.Config
	httpClient   *http.Client
}

// NewTokenAuthority creates a Google OAuth token authority
func NewTokenAuthority(config *Config) repository.ITokenAuthority {
	endpoint := google.Endpoint
	if config.Endpoint != nil {
		endpoint = *config.Endpoint
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TokenAuthority{
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL requests offline access and forces the consent screen so a
// refresh token is issued on every login.
func (a *TokenAuthority) AuthCodeURL(state string) string {
	return a.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (a *TokenAuthority) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	token, err := a.oauth2Config.Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", describe(err))
	}
	return toGrant(token), nil
}

// Refresh posts grant_type=refresh_token. The returned grant carries the
// old refresh token when the authority did not issue a new one.
func (a *TokenAuthority) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is empty")
	}
	source := a.oauth2Config.TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", describe(err))
	}
	return toGrant(token), nil
}

func (a *TokenAuthority) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func toGrant(token *oauth2.Token) *model.TokenGrant {
	expiresIn := defaultExpiresIn
	if !token.Expiry.IsZero() {
		expiresIn = time.Until(token.Expiry).Round(time.Second)
	}
	grant := &model.TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    token.TokenType,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		grant.Scope = scope
	}
	return grant
}

// describe keeps the OAuth error code (invalid_grant, ...) in the message.
func describe(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.ErrorCode != "" {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return &model.PlatformError{StatusCode: status, Message: rerr.ErrorCode, Err: err}
	}
	return err
}
