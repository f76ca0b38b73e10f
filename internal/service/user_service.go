package service

import (
	"context"

	"murmur/internal/auth"
	"murmur/internal/models"
	"murmur/internal/repository"
	"murmur/internal/validation"
)

const (
	MsgSelfFollow    = "You can't follow yourself"
	MsgUserNotExists = "User doesn't exist"
	MsgUnauthorized  = "Unauthorized"
	MsgEmptyQuery    = "Bad request, query was empty"
)

const searchLimit = 20

// UserService serves profiles, the follow graph and user search.
type UserService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository) *UserService {
	return &UserService{users: users, follows: follows}
}

// OwnData returns the profile card of the signed-in user.
func (s *UserService) OwnData(ctx context.Context, claim auth.Claim) (*models.UserData, error) {
	user, err := s.users.GetByID(ctx, claim.ID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError(MsgUnauthorizedUser)
		}
		return nil, err
	}
	return &models.UserData{
		Username:       user.Username,
		UserAt:         user.UserAt,
		FollowingCount: user.FollowingCount,
		FollowersCount: user.FollowersCount,
		Bio:            user.Bio,
		Icon:           user.IconString(),
	}, nil
}

// Profile returns the public profile of userAt as seen by viewer, which may be nil.
func (s *UserService) Profile(ctx context.Context, userAt string, viewer *auth.Claim) (*models.ProfileData, error) {
	user, err := s.lookup(ctx, userAt)
	if err != nil {
		return nil, err
	}

	profile := &models.ProfileData{
		Username:       user.Username,
		UserAt:         user.UserAt,
		FollowersCount: user.FollowersCount,
		FollowingCount: user.FollowingCount,
		Bio:            user.Bio,
		Icon:           user.IconString(),
	}
	if viewer == nil {
		return profile, nil
	}

	if !s.users.HasCredentials(ctx, *viewer) {
		return nil, models.NewUnauthorizedError(MsgUnauthorizedUser)
	}
	profile.IsHimself = viewer.ID == user.ID
	if profile.IsFollowing, err = s.follows.IsFollowing(ctx, viewer.ID, user.ID); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *UserService) Following(ctx context.Context, userAt string) ([]models.UserSummary, error) {
	user, err := s.lookup(ctx, userAt)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.ListFollowing(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

func (s *UserService) Followers(ctx context.Context, userAt string) ([]models.UserSummary, error) {
	user, err := s.lookup(ctx, userAt)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.ListFollowers(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

// SetFollow follows (follow=true) or unfollows the user with handle target.
// Repeating either is a no-op.
func (s *UserService) SetFollow(ctx context.Context, claim auth.Claim, target string, follow bool) error {
	target = validation.NormalizeUserAt(target)
	if target == claim.UserAt {
		return models.NewConflictError(MsgSelfFollow)
	}

	if !s.users.HasCredentials(ctx, claim) {
		return models.NewUnauthorizedError(MsgUnauthorized)
	}

	other, err := s.users.GetByUserAt(ctx, target)
	if err != nil {
		return err
	}
	if other == nil {
		return models.NewValidationError(MsgUserNotExists)
	}

	if follow {
		_, err = s.follows.Follow(ctx, claim.ID, other.ID)
	} else {
		_, err = s.follows.Unfollow(ctx, claim.ID, other.ID)
	}
	return err
}

// Search finds users whose handle or display name contains query.
func (s *UserService) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	query = trim(query)
	if query == "" {
		return nil, models.NewValidationError(MsgEmptyQuery)
	}
	users, err := s.users.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

func (s *UserService) lookup(ctx context.Context, userAt string) (*models.User, error) {
	userAt = validation.NormalizeUserAt(userAt)
	if validation.ValidateUserAt(userAt) != nil {
		return nil, notFound()
	}
	user, err := s.users.GetByUserAt(ctx, userAt)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound()
	}
	return user, nil
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, models.NewUserSummary(&users[i]))
	}
	return out
}
