package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeSession    = "session"
	tokenTypeOAuthState = "oauth-state"

	oauthStateTTL = 10 * time.Minute
)

// SessionClaims are the JWT claims of a browser session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Type   string `json:"type"` // "session" or "oauth-state"
	Next   string `json:"next,omitempty"`
}

// Identity returns the principal the claims describe.
func (c *SessionClaims) Identity() Identity {
	return Identity{ID: c.UserID, Email: c.Email}
}

// SessionIssuer issues and verifies HMAC-signed session and OAuth state tokens.
type SessionIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates a SessionIssuer.
//
//	secret: HMAC key shared by every server instance.
//	issuer: the "iss" claim; the public base URL of the application.
//	ttl:    session lifetime (default: 7 days).
func NewSessionIssuer(secret, issuer string, ttl time.Duration) *SessionIssuer {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionIssuer{
		key:    []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TTL is the lifetime of issued session tokens.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue creates a signed session token for id.
func (s *SessionIssuer) Issue(id Identity) (string, error) {
	now := s.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
		UserID: id.ID,
		Email:  id.Email,
		Type:   tokenTypeSession,
	}
	return s.sign(claims, "session token")
}

// Verify parses and validates a session token.
func (s *SessionIssuer) Verify(tokenStr string) (*SessionClaims, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	if claims.Type != tokenTypeSession || claims.UserID == "" {
		return nil, fmt.Errorf("not a session token")
	}
	return claims, nil
}

// NeedsRefresh reports whether more than half of the session lifetime has
// elapsed.
func (s *SessionIssuer) NeedsRefresh(c *SessionClaims) bool {
	if c.IssuedAt == nil {
		return true
	}
	return s.now().Sub(c.IssuedAt.Time) > s.ttl/2
}

// IssueOAuthState creates the short-lived state parameter for an OAuth
// redirect. next is the post-login destination carried through the
// provider round trip.
func (s *SessionIssuer) IssueOAuthState(next string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   tokenTypeOAuthState,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
			ID:        uuid.New().String(),
		},
		Type: tokenTypeOAuthState,
		Next: next,
	}
	return s.sign(claims, "oauth state")
}

// VerifyOAuthState validates a state token and returns the embedded next path.
func (s *SessionIssuer) VerifyOAuthState(tokenStr string) (next string, err error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return "", fmt.Errorf("invalid oauth state: %w", err)
	}
	if claims.Type != tokenTypeOAuthState {
		return "", fmt.Errorf("not an oauth state token")
	}
	return claims.Next, nil
}

func (s *SessionIssuer) sign(claims SessionClaims, what string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", what, err)
	}
	return signed, nil
}

func (s *SessionIssuer) parse(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
