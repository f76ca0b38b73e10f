package server

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"murmur/internal/auth"
	"murmur/internal/middleware"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPageSize    = 20
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// The message is derived from the parameter name ("id" -> "Invalid ID",
// "postId" -> "Invalid post ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(strings.Join(splitCamel(param[:len(param)-2]), " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// parseBody decodes the JSON body into dst. A malformed body writes 400 and
// returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// statusFor maps an AppError code onto the HTTP status this API answers with.
// Conflicts are client errors (400) and unauthorized callers are refused with 403.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation, models.CodeConflict:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized, models.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the status statusFor chooses. Non-AppErrors
// are logged and hidden behind a generic internal error.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Request failed",
			"path", c.Path(), "error", err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(models.MessageResponse{Message: msg})
}

// claimFrom returns the session claim set by the session middleware. Routes
// that call it are always mounted behind SessionRequired.
func claimFrom(c *fiber.Ctx) auth.Claim {
	if claim, ok := middleware.SessionClaim(c); ok {
		return *claim
	}
	return auth.Claim{}
}

// viewerID is the signed-in user's id, or 0 for an anonymous request.
func viewerID(c *fiber.Ctx) uint {
	if claim, ok := middleware.SessionClaim(c); ok {
		return claim.ID
	}
	return 0
}

func (s *Server) setSessionCookie(c *fiber.Ctx, session auth.Session) {
	c.Cookie(s.sessionCookie(session.Token, session.ExpiresAt))
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
}

func (s *Server) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if s.config.CookieSecure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	cookie := &fiber.Cookie{
		Name:     s.config.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   s.config.CookieSecure,
		HTTPOnly: true,
		SameSite: sameSite,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}
