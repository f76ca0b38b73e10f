package server

import (
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Username string `json:"userName"`
	UserAt   string `json:"userAt"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUser handles POST /user/create
// @Summary Create account
// @Description Register a new user and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupRequest true "Signup request"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/create [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username: req.Username,
		UserAt:   req.UserAt,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.setSessionCookie(c, session)
	return message(c, fiber.StatusCreated, "User created")
}

// Login handles POST /user/login
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.setSessionCookie(c, session)
	return message(c, fiber.StatusOK, "Ok")
}

// Logout handles POST /user/log-out
// @Summary Log out
// @Description Clears the session cookie and revokes its token
// @Tags auth
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/log-out [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	token := c.Cookies(s.config.CookieName)
	if token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(middleware.MsgNoCredentials))
	}

	// An unreadable token is simply dropped; there is nothing to revoke.
	if _, info, err := s.sessions.Validate(token); err == nil {
		if err := s.authService.Logout(c.UserContext(), info); err != nil {
			return respondError(c, err)
		}
	}

	s.clearSessionCookie(c)
	return message(c, fiber.StatusOK, "Cookie removed")
}

// DeleteUser handles DELETE /user/delete
// @Summary Delete account
// @Description Deletes the signed-in account with its posts, likes and follow edges
// @Tags auth
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /user/delete [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.authService.DeleteAccount(c.UserContext(), claimFrom(c)); err != nil {
		return respondError(c, err)
	}
	if info, ok := middleware.SessionToken(c); ok {
		if err := s.authService.Logout(c.UserContext(), info); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "Could not revoke deleted user's session", "error", err)
		}
	}

	s.clearSessionCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateSession handles GET /auth/validate
// @Summary Validate session
// @Tags auth
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/validate [get]
func (s *Server) ValidateSession(c *fiber.Ctx) error {
	return message(c, fiber.StatusOK, "Authorized")
}
