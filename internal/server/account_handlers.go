package server

import (
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

type changeUserAtRequest struct {
	UserAt string `json:"userAt"`
}

type changeProfileRequest struct {
	Username string `json:"userName"`
	Bio      string `json:"bio"`
	Icon     string `json:"icon"`
}

// ChangePassword handles PATCH /user/change/password
// @Summary Change password
// @Tags account
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "Current and new password"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /user/change/password [patch]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.accountService.ChangePassword(c.UserContext(), claimFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusOK, "Password changed succesfully")
}

// ChangeEmail handles PATCH /user/change/email
// @Summary Change email
// @Description Reissues the session cookie for the new address
// @Tags account
// @Accept json
// @Produce json
// @Param request body changeEmailRequest true "New email"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/change/email [patch]
func (s *Server) ChangeEmail(c *fiber.Ctx) error {
	var req changeEmailRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	session, err := s.accountService.ChangeEmail(c.UserContext(), claimFrom(c), req.Email)
	if err != nil {
		return respondError(c, err)
	}
	s.setSessionCookie(c, session)
	return message(c, fiber.StatusOK, "Email changed succesfully")
}

// ChangeUserAt handles PATCH /user/change/user-at
// @Summary Change handle
// @Description Reissues the session cookie for the new handle
// @Tags account
// @Accept json
// @Produce json
// @Param request body changeUserAtRequest true "New handle"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/change/user-at [patch]
func (s *Server) ChangeUserAt(c *fiber.Ctx) error {
	var req changeUserAtRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	session, err := s.accountService.ChangeUserAt(c.UserContext(), claimFrom(c), req.UserAt)
	if err != nil {
		return respondError(c, err)
	}
	s.setSessionCookie(c, session)
	return message(c, fiber.StatusOK, "UserAt changed succesfully")
}

// ChangeProfile handles PATCH /user/change/profile
// @Summary Update display name, bio and icon
// @Tags account
// @Accept json
// @Produce json
// @Param request body changeProfileRequest true "Profile fields"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/change/profile [patch]
func (s *Server) ChangeProfile(c *fiber.Ctx) error {
	var req changeProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	err := s.accountService.UpdateProfile(c.UserContext(), claimFrom(c), service.ProfileInput{
		Username: req.Username,
		Bio:      req.Bio,
		Icon:     req.Icon,
	})
	if err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusOK, "Ok")
}
