package service

import (
	"context"
	"testing"

	"murmur/internal/auth"
	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersByHandle(users ...*models.User) func(context.Context, string) (*models.User, error) {
	return func(_ context.Context, userAt string) (*models.User, error) {
		for _, u := range users {
			if u.UserAt == userAt {
				return u, nil
			}
		}
		return nil, nil
	}
}

func TestUserService_Profile(t *testing.T) {
	t.Parallel()
	bia := &models.User{ID: 2, Username: "Bia", UserAt: "bia", FollowersCount: 3, Icon: []byte("data:image/webp;base64,AA")}

	t.Run("anonymous viewer", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByUserAtFn = usersByHandle(bia)
		svc := NewUserService(repo, noopFollowRepo())

		profile, err := svc.Profile(context.Background(), "bia", nil)
		require.NoError(t, err)
		assert.Equal(t, "Bia", profile.Username)
		assert.Equal(t, 3, profile.FollowersCount)
		assert.Equal(t, "data:image/webp;base64,AA", profile.Icon)
		assert.False(t, profile.IsFollowing)
		assert.False(t, profile.IsHimself)
	})

	t.Run("signed in follower", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByUserAtFn = usersByHandle(bia)
		follows := noopFollowRepo()
		follows.isFollowingFn = func(_ context.Context, a, b uint) (bool, error) { return a == 1 && b == 2, nil }
		svc := NewUserService(repo, follows)

		profile, err := svc.Profile(context.Background(), "bia", &testClaim)
		require.NoError(t, err)
		assert.True(t, profile.IsFollowing)
		assert.False(t, profile.IsHimself)

		self := auth.Claim{ID: 2, UserAt: "bia", Email: "bia@example.com"}
		profile, err = svc.Profile(context.Background(), "bia", &self)
		require.NoError(t, err)
		assert.True(t, profile.IsHimself)
	})

	t.Run("deleted viewer", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByUserAtFn = usersByHandle(bia)
		repo.hasCredentialsFn = func(context.Context, auth.Claim) bool { return false }
		svc := NewUserService(repo, noopFollowRepo())
		_, err := svc.Profile(context.Background(), "bia", &testClaim)
		assertAppError(t, err, models.CodeUnauthorized, MsgUnauthorizedUser)
	})

	t.Run("unknown or invalid handle", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), noopFollowRepo())
		_, err := svc.Profile(context.Background(), "ghost", nil)
		assertAppError(t, err, models.CodeNotFound, MsgNotFound)
		_, err = svc.Profile(context.Background(), "bad-handle!", nil)
		assertAppError(t, err, models.CodeNotFound, MsgNotFound)
	})
}

func TestUserService_SetFollow(t *testing.T) {
	t.Parallel()
	bia := &models.User{ID: 2, UserAt: "bia"}

	newSvc := func() (*UserService, *followRepoStub, *[]string) {
		repo := noopUserRepo()
		repo.getByUserAtFn = usersByHandle(bia)
		repo.hasCredentialsFn = func(_ context.Context, claim auth.Claim) bool {
			return claim.ID == testClaim.ID && claim.Email == testClaim.Email && claim.UserAt == testClaim.UserAt
		}
		follows := noopFollowRepo()
		var calls []string
		follows.followFn = func(_ context.Context, a, b uint) (bool, error) {
			calls = append(calls, "follow")
			return true, nil
		}
		follows.unfollowFn = func(_ context.Context, a, b uint) (bool, error) {
			calls = append(calls, "unfollow")
			return true, nil
		}
		return NewUserService(repo, follows), follows, &calls
	}

	t.Run("follow and unfollow", func(t *testing.T) {
		t.Parallel()
		svc, _, calls := newSvc()
		require.NoError(t, svc.SetFollow(context.Background(), testClaim, "bia", true))
		require.NoError(t, svc.SetFollow(context.Background(), testClaim, "@bia", false))
		assert.Equal(t, []string{"follow", "unfollow"}, *calls)
	})

	t.Run("self", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newSvc()
		err := svc.SetFollow(context.Background(), testClaim, "ana", true)
		assertAppError(t, err, models.CodeConflict, MsgSelfFollow)
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newSvc()
		err := svc.SetFollow(context.Background(), testClaim, "ghost", true)
		assertAppError(t, err, models.CodeValidation, MsgUserNotExists)
	})

	t.Run("stale claim with reused handle", func(t *testing.T) {
		t.Parallel()
		svc, _, calls := newSvc()
		stale := testClaim
		stale.ID = 99
		err := svc.SetFollow(context.Background(), stale, "bia", true)
		assertAppError(t, err, models.CodeUnauthorized, MsgUnauthorized)
		assert.Empty(t, *calls)
	})
}

func TestUserService_FollowLists(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.getByUserAtFn = usersByHandle(&models.User{ID: 2, UserAt: "bia"})
	follows := noopFollowRepo()
	follows.listFollowersFn = func(context.Context, uint) ([]models.User, error) {
		return []models.User{{UserAt: "ana", Username: "Ana"}}, nil
	}
	svc := NewUserService(repo, follows)

	list, err := svc.Followers(context.Background(), "bia")
	require.NoError(t, err)
	assert.Equal(t, []models.UserSummary{{UserAt: "ana", Username: "Ana", Icon: ""}}, list)

	list, err = svc.Following(context.Background(), "bia")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list, "empty lists encode as []")

	_, err = svc.Following(context.Background(), "ghost")
	assertAppError(t, err, models.CodeNotFound, MsgNotFound)
}

func TestUserService_Search(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	var gotQuery string
	repo.searchFn = func(_ context.Context, q string, _ int) ([]models.User, error) {
		gotQuery = q
		return []models.User{{UserAt: "ana", Username: "Ana"}}, nil
	}
	svc := NewUserService(repo, noopFollowRepo())

	out, err := svc.Search(context.Background(), "  an ")
	require.NoError(t, err)
	assert.Equal(t, "an", gotQuery)
	assert.Len(t, out, 1)

	_, err = svc.Search(context.Background(), "   ")
	assertAppError(t, err, models.CodeValidation, MsgEmptyQuery)
}

func TestUserService_OwnData(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.getByIDFn = func(context.Context, uint) (*models.User, error) {
		return &models.User{Username: "Ana", UserAt: "ana", FollowingCount: 2, Bio: "hi"}, nil
	}
	svc := NewUserService(repo, noopFollowRepo())
	data, err := svc.OwnData(context.Background(), testClaim)
	require.NoError(t, err)
	assert.Equal(t, models.UserData{Username: "Ana", UserAt: "ana", FollowingCount: 2, Bio: "hi"}, *data)

	repo.getByIDFn = func(context.Context, uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", 1)
	}
	_, err = svc.OwnData(context.Background(), testClaim)
	assertAppError(t, err, models.CodeUnauthorized, MsgUnauthorizedUser)
}
