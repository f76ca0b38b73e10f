package middleware

import (
	"context"
	"log/slog"

	"murmur/internal/auth"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys written by the session middleware.
const (
	LocalUserID       = "userID"
	LocalSessionClaim = "sessionClaim"
	LocalSessionToken = "sessionToken"
)

// Default rejection messages.
const (
	MsgNoCredentials = "No credentials"
	MsgInvalidToken  = "Invalid JSON Web Token"
)

// SessionValidator verifies a raw session token.
type SessionValidator interface {
	Validate(token string) (*auth.Claim, *auth.TokenInfo, error)
}

// RevocationChecker reports whether a token id was revoked on logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionConfig wires the session middleware.
type SessionConfig struct {
	CookieName  string
	Codec       SessionValidator
	Revocations RevocationChecker

	// Optional overrides for the 403 bodies.
	MissingMessage string
	InvalidMessage string
}

// SessionRequired rejects requests without a valid, unrevoked session cookie with 403.
func SessionRequired(cfg SessionConfig) fiber.Handler {
	missing := cfg.MissingMessage
	if missing == "" {
		missing = MsgNoCredentials
	}
	invalid := cfg.InvalidMessage
	if invalid == "" {
		invalid = MsgInvalidToken
	}

	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.CookieName)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewUnauthorizedError(missing))
		}
		if !authenticate(c, cfg, token) {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewUnauthorizedError(invalid))
		}
		return c.Next()
	}
}

// SessionOptional attaches the session when one is present. A cookie that is
// present but invalid is still rejected with 403.
func SessionOptional(cfg SessionConfig) fiber.Handler {
	invalid := cfg.InvalidMessage
	if invalid == "" {
		invalid = MsgInvalidToken
	}

	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.CookieName)
		if token == "" {
			return c.Next()
		}
		if !authenticate(c, cfg, token) {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewUnauthorizedError(invalid))
		}
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, cfg SessionConfig, token string) bool {
	claim, info, err := cfg.Codec.Validate(token)
	if err != nil {
		Logger.DebugContext(c.UserContext(), "session rejected", slog.String("error", err.Error()))
		return false
	}

	if cfg.Revocations != nil && info.JTI != "" {
		revoked, err := cfg.Revocations.IsRevoked(c.UserContext(), info.JTI)
		if err != nil {
			// Revocation is best effort when Redis is unhealthy.
			Logger.WarnContext(c.UserContext(), "revocation check failed", slog.String("error", err.Error()))
		} else if revoked {
			return false
		}
	}

	c.Locals(LocalUserID, claim.ID)
	c.Locals(LocalSessionClaim, claim)
	c.Locals(LocalSessionToken, info)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claim.ID))
	return true
}

// SessionClaim returns the claim attached by the session middleware.
func SessionClaim(c *fiber.Ctx) (*auth.Claim, bool) {
	claim, ok := c.Locals(LocalSessionClaim).(*auth.Claim)
	return claim, ok && claim != nil
}

// SessionToken returns the token metadata attached by the session middleware.
func SessionToken(c *fiber.Ctx) (*auth.TokenInfo, bool) {
	info, ok := c.Locals(LocalSessionToken).(*auth.TokenInfo)
	return info, ok && info != nil
}
