package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
)

const (
	defaultSessionIssuer = "prm-auth"
	bearerPrefix         = "Bearer "
)

var (
	ErrSigningSecretRequired = errors.New("auth: signing secret required")
	ErrCookieNameRequired    = errors.New("auth: session cookie name required")
	ErrTokenMissing          = errors.New("auth: session token missing")
	ErrTokenInvalid          = errors.New("auth: session token invalid")
	ErrTokenExpired          = errors.New("auth: session token expired")
	ErrReviewerMissing       = errors.New("auth: session carries no reviewer")
)

// ReviewerClaims is the session payload minted by the login service for PRM reviewers.
// ReviewerID falls back to the registered subject when the login service omits it.
type ReviewerClaims struct {
	ReviewerID  string   `json:"reviewer_id,omitempty"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the reviewer was granted role.
func (c ReviewerClaims) HasRole(role string) bool {
	return lo.Contains(c.Roles, role)
}

// SessionValidatorConfig describes how reviewer sessions are verified.
type SessionValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	Clock         func() time.Time
}

// SessionValidator verifies HS256 reviewer sessions carried in a bearer header or cookie.
type SessionValidator struct {
	parser        *jwt.Parser
	signingSecret []byte
	cookieName    string
}

func NewSessionValidator(cfg SessionValidatorConfig) (*SessionValidator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrSigningSecretRequired
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrCookieNameRequired
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultSessionIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clock),
	)
	return &SessionValidator{
		parser:        parser,
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		cookieName:    cookieName,
	}, nil
}

// ValidateRequest authenticates the reviewer behind r.
func (v *SessionValidator) ValidateRequest(r *http.Request) (ReviewerClaims, error) {
	token, err := v.sessionToken(r)
	if err != nil {
		return ReviewerClaims{}, err
	}
	return v.ValidateToken(token)
}

// ValidateToken verifies a signed session and returns its reviewer claims.
func (v *SessionValidator) ValidateToken(rawToken string) (ReviewerClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ReviewerClaims{}, ErrTokenMissing
	}

	var claims ReviewerClaims
	_, err := v.parser.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return v.signingSecret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReviewerClaims{}, ErrTokenExpired
	case err != nil:
		return ReviewerClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims.ReviewerID = strings.TrimSpace(claims.ReviewerID)
	if claims.ReviewerID == "" {
		claims.ReviewerID = strings.TrimSpace(claims.Subject)
	}
	if claims.ReviewerID == "" {
		return ReviewerClaims{}, ErrReviewerMissing
	}
	return claims, nil
}

// sessionToken prefers the Authorization header; browsers opening the event stream send the cookie.
func (v *SessionValidator) sessionToken(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrTokenMissing
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix), nil
	}
	cookie, err := r.Cookie(v.cookieName)
	if err != nil {
		return "", ErrTokenMissing
	}
	return cookie.Value, nil
}
