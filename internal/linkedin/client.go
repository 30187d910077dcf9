// Package linkedin talks to the external identity provider: it builds the
// authorization URL, exchanges authorization codes for access tokens, and
// fetches the account profile.
package linkedin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

// Default provider endpoints.
const (
	DefaultUserInfoURL        = "https://api.linkedin.com/v2/userinfo"
	DefaultExtendedProfileURL = "https://api.linkedin.com/v2/me"
)

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"openid", "profile", "email"}

// ErrExchangeFailed is returned when the token endpoint rejects a code.
var ErrExchangeFailed = errors.New("token exchange failed")

// ExchangeError carries the provider's diagnosis of a failed exchange.
// Description is for operators only and must not reach end users.
type ExchangeError struct {
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ExchangeError) Error() string {
	msg := "token exchange failed"
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " (" + e.Description + ")"
	}
	if e.Code == "" && e.Description == "" && e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExchangeFailed}
	}
	return []error{ErrExchangeFailed, e.Err}
}

// Config holds the OAuth client credentials and endpoint overrides.
// Empty URLs fall back to the provider defaults.
type Config struct {
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	Scopes             []string
	AuthURL            string
	TokenURL           string
	UserInfoURL        string
	ExtendedProfileURL string
	HTTPTimeout        time.Duration
}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken  string
	ExpiresIn    int64
	RefreshToken string
	Scope        string
}

// Client is the provider API client. It is safe for concurrent use.
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	extendedURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// New creates a Client. A Config without client credentials yields a Client
// whose Configured method reports false.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	endpoint := linkedin.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	extendedURL := cfg.ExtendedProfileURL
	if extendedURL == "" {
		extendedURL = DefaultExtendedProfileURL
	}

	c := &Client{
		userInfoURL: userInfoURL,
		extendedURL: extendedURL,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		logger:      logger,
	}
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		c.oauth = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		}
	}
	return c
}

// Configured reports whether client credentials are present.
func (c *Client) Configured() bool {
	return c.oauth != nil
}

// AuthCodeURL returns the provider consent URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	if c.oauth == nil {
		return ""
	}
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades a single-use authorization code for an access token.
// It is never retried: a failed code cannot be redeemed again.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	if c.oauth == nil {
		return nil, &ExchangeError{Description: "client credentials not configured"}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		exErr := &ExchangeError{Err: err}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			exErr.Code = rErr.ErrorCode
			exErr.Description = rErr.ErrorDescription
			if rErr.Response != nil {
				exErr.Status = rErr.Response.StatusCode
			}
		}
		return nil, exErr
	}
	if tok.AccessToken == "" {
		return nil, &ExchangeError{Description: "empty access token in response"}
	}

	out := &Token{
		AccessToken:  tok.AccessToken,
		ExpiresIn:    tok.ExpiresIn,
		RefreshToken: tok.RefreshToken,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	if out.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return out, nil
}

// authorizedClient returns an HTTP client that sends accessToken as a bearer token.
func (c *Client) authorizedClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.httpClient.Timeout
	return hc
}
