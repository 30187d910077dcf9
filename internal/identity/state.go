package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultStateMaxAge is how long an issued authorization request stays redeemable.
const DefaultStateMaxAge = 10 * time.Minute

// ErrMalformedState is returned when a state token cannot be parsed or
// its signature does not verify.
var ErrMalformedState = errors.New("malformed oauth state")

// OAuthState binds an outbound authorization request to its callback.
type OAuthState struct {
	SessionID    string
	RedirectPath string
	IssuedAt     time.Time
}

// NewOAuthState creates a state issued at now. IssuedAt is truncated to
// seconds, the precision the encoded token carries.
func NewOAuthState(sessionID, redirectPath string, now time.Time) OAuthState {
	return OAuthState{
		SessionID:    sessionID,
		RedirectPath: redirectPath,
		IssuedAt:     now.UTC().Truncate(time.Second),
	}
}

// Age returns how long ago the state was issued.
func (s OAuthState) Age(now time.Time) time.Duration {
	return now.Sub(s.IssuedAt)
}

// stateClaims is the JWT payload of an encoded OAuthState.
type stateClaims struct {
	jwt.RegisteredClaims
	SessionID    string `json:"sid"`
	RedirectPath string `json:"rdr,omitempty"`
	Type         string `json:"type"`
}

const stateTokenType = "oauth-state"

// StateCodec encodes OAuthState values as compact HS256 JWTs. The token is
// URL-safe and carries no secret; the signature only stops a client from
// crafting a state that decodes.
type StateCodec struct {
	key []byte
}

// NewStateCodec creates a StateCodec. An empty secret generates a random
// per-process key, which invalidates outstanding states on restart.
func NewStateCodec(secret string) (*StateCodec, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate state key: %w", err)
		}
	}
	return &StateCodec{key: key}, nil
}

// Encode produces the opaque token for s.
func (c *StateCodec) Encode(s OAuthState) (string, error) {
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "oauth-state",
			IssuedAt: jwt.NewNumericDate(s.IssuedAt),
			ID:       uuid.New().String(),
		},
		SessionID:    s.SessionID,
		RedirectPath: s.RedirectPath,
		Type:         stateTokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

// Decode parses a token produced by Encode. Freshness is not checked here.
func (c *StateCodec) Decode(tokenStr string) (OAuthState, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&stateClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return c.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return OAuthState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid || claims.Type != stateTokenType {
		return OAuthState{}, fmt.Errorf("%w: not an oauth state token", ErrMalformedState)
	}
	if claims.SessionID == "" {
		return OAuthState{}, fmt.Errorf("%w: missing session id", ErrMalformedState)
	}
	if claims.IssuedAt == nil {
		return OAuthState{}, fmt.Errorf("%w: missing issue time", ErrMalformedState)
	}
	return OAuthState{
		SessionID:    claims.SessionID,
		RedirectPath: claims.RedirectPath,
		IssuedAt:     claims.IssuedAt.UTC(),
	}, nil
}
