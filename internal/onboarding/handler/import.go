// Package handler exposes the external profile import flow over HTTP.
package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carelinkhealth/onboarding/internal/identity"
	"github.com/carelinkhealth/onboarding/internal/linkedin"
	"github.com/carelinkhealth/onboarding/internal/profile"
	"github.com/carelinkhealth/onboarding/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	stateCookieName = "oauth_state"
	stateCookiePath = "/auth/external"
)

// provider is satisfied by *linkedin.Client.
type provider interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*linkedin.Token, error)
	FetchBasic(ctx context.Context, accessToken string) (*profile.ExternalProfile, error)
	FetchExtended(ctx context.Context, accessToken string) linkedin.ExtendedResult
}

// sessionStore is satisfied by *session.Store.
type sessionStore interface {
	Save(ctx context.Context, sessionID string, p *profile.ExternalProfile, accessToken string) (*session.Record, error)
	Load(ctx context.Context, sessionID string) (*session.Record, error)
	Purge(ctx context.Context, sessionID string) error
}

// ImportConfig holds the front end settings of the import flow.
type ImportConfig struct {
	FrontendURL         string
	DefaultRedirectPath string
	SecureCookies       bool
	StateMaxAge         time.Duration
}

// ImportHandler drives the start → callback → profile read sequence.
type ImportHandler struct {
	provider provider
	codec    *identity.StateCodec
	mapper   *profile.Mapper
	store    sessionStore
	cfg      ImportConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(
	p provider,
	codec *identity.StateCodec,
	mapper *profile.Mapper,
	store sessionStore,
	cfg ImportConfig,
	logger *zap.Logger,
) *ImportHandler {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if cfg.DefaultRedirectPath == "" {
		cfg.DefaultRedirectPath = "/onboarding"
	}
	if cfg.StateMaxAge == 0 {
		cfg.StateMaxAge = identity.DefaultStateMaxAge
	}
	return &ImportHandler{
		provider: p,
		codec:    codec,
		mapper:   mapper,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the time source used for state freshness. Intended for tests.
func (h *ImportHandler) SetClock(now func() time.Time) {
	h.now = now
}

// Register mounts the import routes on the provided router.
func (h *ImportHandler) Register(r gin.IRouter) {
	g := r.Group("/auth/external")
	{
		g.GET("/start", h.Start)
		g.GET("/callback", h.Callback)
		g.GET("/profile", h.Profile)
		g.DELETE("/profile", h.Purge)
		g.GET("/status", h.Status)
	}
}

// Status handles GET /auth/external/status.
func (h *ImportHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"configured": h.provider.Configured()})
}

// Start handles GET /auth/external/start. It issues the state cookie and
// redirects to the provider consent page.
func (h *ImportHandler) Start(c *gin.Context) {
	if !h.provider.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":    false,
			"configured": false,
			"error":      "external profile import is not available",
		})
		return
	}

	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_id is required"})
		return
	}

	state := identity.NewOAuthState(sessionID, sanitizeRedirectPath(c.Query("redirect")), h.now())
	token, err := h.codec.Encode(state)
	if err != nil {
		h.logger.Error("encode oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to start import"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, token, int(h.cfg.StateMaxAge.Seconds()), stateCookiePath, "", h.cfg.SecureCookies, true)

	importStartsTotal.Inc()
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(token))
}

// Callback handles GET /auth/external/callback. Every outcome clears the
// state cookie and redirects to the front end.
func (h *ImportHandler) Callback(c *gin.Context) {
	cookieState, _ := c.Cookie(stateCookieName)
	h.clearStateCookie(c)

	state, stateErr := h.validateState(cookieState, c.Query("state"))

	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Info("provider returned authorization error",
			zap.String("provider_error", providerErr),
			zap.String("provider_error_description", c.Query("error_description")),
			zap.String("session_id", state.SessionID),
		)
		h.fail(c, state, &flowError{code: codeProviderDenied, stage: stageAwaitingCallback, message: msgDenied})
		return
	}
	if stateErr != nil {
		h.fail(c, state, stateErr)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.fail(c, state, &flowError{code: codeMissingCode, stage: stageAwaitingCallback, message: msgIncomplete})
		return
	}

	ctx := c.Request.Context()

	tok, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.fail(c, state, &flowError{code: codeExchangeFailed, stage: stageExchanging, message: msgImportFailed, err: err})
		return
	}

	basic, err := h.provider.FetchBasic(ctx, tok.AccessToken)
	if err != nil {
		h.fail(c, state, &flowError{code: codeProfileFetchFailed, stage: stageFetchingProfile, message: msgImportFailed, err: err})
		return
	}
	ext := h.provider.FetchExtended(ctx, tok.AccessToken)
	recordExtended(ext.Available(), ext.Reason)
	imported := linkedin.Merge(basic, ext)

	if _, err := h.store.Save(ctx, state.SessionID, imported, tok.AccessToken); err != nil {
		h.fail(c, state, &flowError{code: codePersistFailed, stage: stagePersisting, message: msgImportFailed, err: err})
		return
	}

	h.logger.Info("external profile imported",
		zap.String("session_id", state.SessionID),
		zap.String("stage", string(stageCompleted)),
		zap.Bool("extended", ext.Available()),
	)
	recordOutcome("connected")

	params := url.Values{
		"imported": {"connected"},
		"session":  {state.SessionID},
	}
	if name := imported.DisplayName; name != "" {
		params.Set("name", name)
	}
	c.Redirect(http.StatusFound, buildRedirect(h.cfg.FrontendURL, state.RedirectPath, h.cfg.DefaultRedirectPath, params))
}

// validateState decodes the callback state and checks it against the cookie.
// The signed state is decoded and aged before the cookie compare, so a late
// callback reports expiry even after the browser has dropped the cookie.
// The returned state carries whatever could be decoded, so failures can
// still honour the caller's redirect path.
func (h *ImportHandler) validateState(cookieState, queryState string) (identity.OAuthState, *flowError) {
	if queryState == "" {
		return identity.OAuthState{}, &flowError{code: codeStateMismatch, stage: stageAwaitingCallback, message: msgSessionExpired}
	}

	state, err := h.codec.Decode(queryState)
	if err != nil {
		return identity.OAuthState{}, &flowError{code: codeMalformedState, stage: stageAwaitingCallback, message: msgSessionExpired, err: err}
	}
	if state.Age(h.now()) > h.cfg.StateMaxAge {
		return state, &flowError{code: codeStateExpired, stage: stageAwaitingCallback, message: msgSessionExpired}
	}

	if cookieState == "" || subtle.ConstantTimeCompare([]byte(cookieState), []byte(queryState)) != 1 {
		return identity.OAuthState{}, &flowError{code: codeStateMismatch, stage: stageAwaitingCallback, message: msgSessionExpired}
	}
	return state, nil
}

// fail logs the failure with its specific code and redirects with the
// generic user-facing message.
func (h *ImportHandler) fail(c *gin.Context, state identity.OAuthState, fe *flowError) {
	fields := []zap.Field{
		zap.String("error_code", fe.code),
		zap.String("stage", string(fe.stage)),
		zap.String("session_id", state.SessionID),
	}
	if fe.err != nil {
		fields = append(fields, zap.Error(fe.err))
	}

	switch {
	case fe.code == codeStateMismatch:
		fields = append(fields, zap.Bool("possible_forgery", true), zap.String("client_ip", c.ClientIP()))
		h.logger.Warn("oauth state rejected", fields...)
	case fe.integrity():
		h.logger.Warn("oauth state rejected", fields...)
	case fe.code == codeProviderDenied || fe.code == codeMissingCode:
		h.logger.Info("import not completed", fields...)
	default:
		var exErr *linkedin.ExchangeError
		if errors.As(fe.err, &exErr) {
			fields = append(fields,
				zap.Int("provider_status", exErr.Status),
				zap.String("provider_error", exErr.Code),
				zap.String("provider_error_description", exErr.Description),
			)
		}
		h.logger.Error("import failed", fields...)
	}
	recordOutcome(fe.code)

	params := url.Values{
		"imported":   {"error"},
		"error":      {fe.message},
		"error_code": {fe.code},
	}
	c.Redirect(http.StatusFound, buildRedirect(h.cfg.FrontendURL, state.RedirectPath, h.cfg.DefaultRedirectPath, params))
}

func (h *ImportHandler) clearStateCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, stateCookiePath, "", h.cfg.SecureCookies, true)
}

// Profile handles GET /auth/external/profile with the imported profile
// and its onboarding projection. A missing or unknown session is a 404.
func (h *ImportHandler) Profile(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no imported profile for this session"})
		return
	}

	rec, err := h.store.Load(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no imported profile for this session"})
			return
		}
		h.logger.Error("load imported profile", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load imported profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"profile":    rec.Profile,
		"mappedData": h.mapper.Map(&rec.Profile),
		"expires_at": rec.ExpiresAt,
	})
}

// Purge handles DELETE /auth/external/profile. It drops the imported profile
// once onboarding no longer needs it.
func (h *ImportHandler) Purge(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "session_id is required"})
		return
	}
	if err := h.store.Purge(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("purge imported profile", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete imported profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
