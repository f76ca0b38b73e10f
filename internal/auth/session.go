package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every session token.
const Issuer = "murmur-api"

// DefaultSessionTTL applies when a codec is built with a non-positive TTL.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken covers bad signatures, wrong methods, expiry and unreadable payloads.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrMissingSecret is returned when the codec has no signing key.
	ErrMissingSecret = errors.New("session secret not configured")
)

// Claim identifies the caller. It travels JSON-encoded in the token subject.
type Claim struct {
	ID     uint   `json:"id"`
	UserAt string `json:"user_at"`
	Email  string `json:"email"`
}

func (c Claim) complete() bool {
	return c.ID != 0 && c.UserAt != "" && c.Email != ""
}

// Session is a freshly signed token.
type Session struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenInfo carries the registered claims needed for revocation.
type TokenInfo struct {
	JTI       string
	ExpiresAt time.Time
}

// SessionCodec signs and verifies HS256 session tokens.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec builds a codec. A non-positive ttl falls back to DefaultSessionTTL.
func NewSessionCodec(secret string, ttl time.Duration) *SessionCodec {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *SessionCodec) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for claim.
func (s *SessionCodec) Issue(claim Claim) (Session, error) {
	if len(s.secret) == 0 {
		return Session{}, ErrMissingSecret
	}

	sub, err := json.Marshal(claim)
	if err != nil {
		return Session{}, fmt.Errorf("encode claim: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(sub),
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        jti,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	return Session{Token: signed, JTI: jti, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// Validate verifies token and decodes its claim.
func (s *SessionCodec) Validate(token string) (*Claim, *TokenInfo, error) {
	if len(s.secret) == 0 {
		return nil, nil, ErrMissingSecret
	}

	var registered jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &registered,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claim Claim
	if err := json.Unmarshal([]byte(registered.Subject), &claim); err != nil {
		return nil, nil, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	if !claim.complete() {
		return nil, nil, fmt.Errorf("%w: incomplete subject", ErrInvalidToken)
	}

	info := &TokenInfo{JTI: registered.ID}
	if registered.ExpiresAt != nil {
		info.ExpiresAt = registered.ExpiresAt.Time
	}
	return &claim, info, nil
}
