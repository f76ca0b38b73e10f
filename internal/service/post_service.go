package service

import (
	"context"
	"strconv"

	"murmur/internal/auth"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
	"murmur/internal/validation"
)

const MsgEmptyPost = "Bad request, post was empty"

// PostService publishes, lists, edits and deletes posts and comments, and toggles likes.
type PostService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	limits Limits
}

// PostInput is the body of publish, comment and edit requests. Image is a data URL.
type PostInput struct {
	Text  string
	Image string
}

func NewPostService(users repository.UserRepository, posts repository.PostRepository, limits Limits) *PostService {
	return &PostService{users: users, posts: posts, limits: limits}
}

// Publish stores a new top-level post. The image, if any, is normalized to WebP first.
func (s *PostService) Publish(ctx context.Context, claim auth.Claim, in PostInput) (*models.Post, error) {
	ctx, span := observability.GetTraceLayer().TraceAPIToServiceCall(ctx, "PostService", "Publish")
	defer span.End()

	post, err := s.build(ctx, claim, in)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Comment attaches a comment to the top-level post parentID.
func (s *PostService) Comment(ctx context.Context, claim auth.Claim, parentID uint, in PostInput) (*models.Post, error) {
	comment, err := s.build(ctx, claim, in)
	if err != nil {
		return nil, err
	}
	if err := s.posts.CreateComment(ctx, parentID, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Edit replaces the text and image of a post or comment owned by the caller.
func (s *PostService) Edit(ctx context.Context, claim auth.Claim, id uint, in PostInput) error {
	text, image, err := s.content(in)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, claim, id); err != nil {
		return err
	}
	return s.posts.UpdateContent(ctx, id, text, image)
}

// Delete removes a top-level post owned by the caller along with its comments.
// Comment ids are reported as missing posts; DeleteComment handles those.
func (s *PostService) Delete(ctx context.Context, claim auth.Claim, id uint) error {
	post, err := s.owned(ctx, claim, id)
	if err != nil {
		return err
	}
	if post.IsComment() {
		return models.NewNotFoundError("Post", id)
	}
	return s.posts.Delete(ctx, id)
}

// DeleteComment removes a comment owned by the caller.
func (s *PostService) DeleteComment(ctx context.Context, claim auth.Claim, id uint) error {
	post, err := s.owned(ctx, claim, id)
	if err != nil {
		return err
	}
	if !post.IsComment() {
		return models.NewNotFoundError("Comment", id)
	}
	return s.posts.Delete(ctx, id)
}

// SetLike likes or unlikes postID. onComment selects whether the target must be
// a comment or a top-level post.
func (s *PostService) SetLike(ctx context.Context, claim auth.Claim, postID uint, like, onComment bool) error {
	if !s.users.HasCredentials(ctx, claim) {
		return models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsComment() != onComment {
		if onComment {
			return models.NewNotFoundError("Comment", postID)
		}
		return models.NewNotFoundError("Post", postID)
	}

	if like {
		_, err = s.posts.Like(ctx, claim.ID, postID)
	} else {
		_, err = s.posts.Unlike(ctx, claim.ID, postID)
	}
	return err
}

// Feed returns top-level posts from everyone, newest first. viewerID 0 is anonymous.
func (s *PostService) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]models.ResponsePost, error) {
	posts, err := s.posts.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, viewerID, posts)
}

func (s *PostService) Get(ctx context.Context, viewerID, id uint) (*models.ResponsePost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.respond(ctx, viewerID, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ByUser returns the top-level posts of userAt, newest first.
func (s *PostService) ByUser(ctx context.Context, viewerID uint, userAt string, limit, offset int) ([]models.ResponsePost, error) {
	userAt = validation.NormalizeUserAt(userAt)
	owner, err := s.users.GetByUserAt(ctx, userAt)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, notFound()
	}
	posts, err := s.posts.ListByOwner(ctx, owner.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, viewerID, posts)
}

// Comments returns the comments on postID, newest first.
func (s *PostService) Comments(ctx context.Context, viewerID, postID uint) ([]models.ResponsePost, error) {
	comments, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, viewerID, comments)
}

func (s *PostService) build(ctx context.Context, claim auth.Claim, in PostInput) (*models.Post, error) {
	text, image, err := s.content(in)
	if err != nil {
		return nil, err
	}
	if !s.users.HasCredentials(ctx, claim) {
		return nil, models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	return &models.Post{OwnerID: claim.ID, Text: text, Image: image}, nil
}

func (s *PostService) content(in PostInput) (string, []byte, error) {
	text := trim(in.Text)
	if text == "" && trim(in.Image) == "" {
		return "", nil, models.NewValidationError(MsgEmptyPost)
	}
	if err := validation.ValidatePostText(text, s.limits.PostTextMaxLen); err != nil {
		return "", nil, validationError(err)
	}
	image, err := s.limits.normalizeImage(in.Image, s.limits.ImageMaxDim)
	if err != nil {
		return "", nil, err
	}
	return text, image, nil
}

func (s *PostService) owned(ctx context.Context, claim auth.Claim, id uint) (*models.Post, error) {
	if !s.users.HasCredentials(ctx, claim) {
		return nil, models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != claim.ID {
		return nil, models.NewForbiddenError(MsgForbidden)
	}
	return post, nil
}

func (s *PostService) respond(ctx context.Context, viewerID uint, posts []models.Post) ([]models.ResponsePost, error) {
	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ResponsePost, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		out = append(out, models.ResponsePost{
			HasThisUserLiked: liked[p.ID],
			OwnerID:          p.OwnerID,
			PostID:           p.ID,
			UnixTime:         strconv.FormatInt(p.UnixTime, 10),
			UserAt:           p.Owner.UserAt,
			Username:         p.Owner.Username,
			LikesCount:       p.LikesCount,
			CommentsCount:    p.CommentsCount,
			Icon:             p.Owner.IconString(),
			Text:             p.Text,
			Image:            p.ImageString(),
		})
	}
	return out, nil
}
