package server

import (
	"murmur/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type followRequest struct {
	UserAt string `json:"user_at"`
	Follow bool   `json:"follow"`
}

// GetUserData handles GET /user/data
// @Summary Own profile card
// @Tags users
// @Produce json
// @Success 200 {object} models.UserData
// @Failure 403 {object} models.ErrorResponse
// @Router /user/data [get]
func (s *Server) GetUserData(c *fiber.Ctx) error {
	data, err := s.userService.OwnData(c.UserContext(), claimFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(data)
}

// GetProfile handles GET /user/profile/:userAt
// @Summary Public profile
// @Tags users
// @Produce json
// @Param userAt path string true "User handle"
// @Success 200 {object} models.ProfileData
// @Failure 404 {object} models.ErrorResponse
// @Router /user/profile/{userAt} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	viewer, _ := middleware.SessionClaim(c)
	profile, err := s.userService.Profile(c.UserContext(), c.Params("userAt"), viewer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetFollowing handles GET /user/following/:userAt
// @Summary Accounts a user follows
// @Tags users
// @Produce json
// @Param userAt path string true "User handle"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /user/following/{userAt} [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.userService.Following(c.UserContext(), c.Params("userAt"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowers handles GET /user/followers/:userAt
// @Summary Accounts following a user
// @Tags users
// @Produce json
// @Param userAt path string true "User handle"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /user/followers/{userAt} [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.userService.Followers(c.UserContext(), c.Params("userAt"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// Follow handles PATCH /user/follow
// @Summary Follow or unfollow
// @Tags users
// @Accept json
// @Produce json
// @Param request body followRequest true "Target and direction"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /user/follow [patch]
func (s *Server) Follow(c *fiber.Ctx) error {
	var req followRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.userService.SetFollow(c.UserContext(), claimFrom(c), req.UserAt, req.Follow); err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusOK, "Ok")
}

// SearchUsers handles GET /user/query/:text
// @Summary Search users
// @Tags users
// @Produce json
// @Param text path string true "Search text"
// @Success 200 {array} models.UserSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /user/query/{text} [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.Search(c.UserContext(), c.Params("text"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}
