package server

import (
	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type likeRequest struct {
	PostID uint `json:"postId"`
	Like   bool `json:"like"`
}

type deleteCommentRequest struct {
	CommentID uint `json:"commentId"`
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{Text: r.Text, Image: r.Image}
}

// PublishPost handles POST /user/publish-post
// @Summary Publish a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body postRequest true "Text and optional image data URL"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /user/publish-post [post]
func (s *Server) PublishPost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if _, err := s.postService.Publish(c.UserContext(), claimFrom(c), req.input()); err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusCreated, "Post created")
}

// FetchPosts handles GET /user/fetch-posts
// @Summary Feed
// @Description Top-level posts from everyone, newest first
// @Tags posts
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {array} models.ResponsePost
// @Router /user/fetch-posts [get]
func (s *Server) FetchPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)
	posts, err := s.postService.Feed(c.UserContext(), viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// FetchPost handles GET /user/fetch-post/:id
// @Summary Single post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.ResponsePost
// @Failure 404 {object} models.ErrorResponse
// @Router /user/fetch-post/{id} [get]
func (s *Server) FetchPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// FetchUserPosts handles GET /user/fetch-user-posts/:userAt
// @Summary Posts by one user
// @Tags posts
// @Produce json
// @Param userAt path string true "User handle"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {array} models.ResponsePost
// @Failure 404 {object} models.ErrorResponse
// @Router /user/fetch-user-posts/{userAt} [get]
func (s *Server) FetchUserPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)
	posts, err := s.postService.ByUser(c.UserContext(), viewerID(c), c.Params("userAt"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// FetchComments handles GET /user/fetch-post-comments/:id
// @Summary Comments on a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.ResponsePost
// @Router /user/fetch-post-comments/{id} [get]
func (s *Server) FetchComments(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.postService.Comments(c.UserContext(), viewerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// LikePost handles PATCH /user/like
// @Summary Like or unlike a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body likeRequest true "Post and direction"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/like [patch]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggleLike(c, false)
}

// LikeComment handles PATCH /user/like-comment
// @Summary Like or unlike a comment
// @Tags posts
// @Accept json
// @Produce json
// @Param request body likeRequest true "Comment and direction"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/like-comment [patch]
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.toggleLike(c, true)
}

func (s *Server) toggleLike(c *fiber.Ctx, onComment bool) error {
	var req likeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.PostID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid post ID"))
	}
	if err := s.postService.SetLike(c.UserContext(), claimFrom(c), req.PostID, req.Like, onComment); err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusOK, "Ok")
}

// CommentPost handles PATCH /user/comment/:postId
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Param postId path int true "Parent post ID"
// @Param request body postRequest true "Text and optional image data URL"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/comment/{postId} [patch]
func (s *Server) CommentPost(c *fiber.Ctx) error {
	parentID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if _, err := s.postService.Comment(c.UserContext(), claimFrom(c), parentID, req.input()); err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusCreated, "Comment created")
}

// EditPost handles PATCH /user/edit-post/:id
// @Summary Edit a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body postRequest true "Replacement text and image"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/edit-post/{id} [patch]
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.postService.Edit(c.UserContext(), claimFrom(c), id, req.input()); err != nil {
		return respondError(c, err)
	}
	return message(c, fiber.StatusOK, "Ok")
}

// DeletePost handles DELETE /user/delete-post/:id
// @Summary Delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/delete-post/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Delete(c.UserContext(), claimFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteComment handles DELETE /user/delete-post-comment
// @Summary Delete a comment
// @Tags posts
// @Accept json
// @Param request body deleteCommentRequest true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /user/delete-post-comment [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	var req deleteCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.CommentID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid comment ID"))
	}
	if err := s.postService.DeleteComment(c.UserContext(), claimFrom(c), req.CommentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
