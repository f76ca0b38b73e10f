package service

import (
	"context"
	"testing"
	"time"

	"murmur/internal/auth"
	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
)

type userRepoStub struct {
	existsByUserAtFn func(context.Context, string) (bool, error)
	existsByEmailFn  func(context.Context, string) (bool, error)
	createFn         func(context.Context, *models.User) error
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	getByUserAtFn    func(context.Context, string) (*models.User, error)
	verifyPasswordFn func(context.Context, string, string) bool
	hasCredentialsFn func(context.Context, auth.Claim) bool
	updatePasswordFn func(context.Context, uint, string) error
	updateEmailFn    func(context.Context, uint, string) error
	updateUserAtFn   func(context.Context, uint, string) error
	updateProfileFn  func(context.Context, uint, string, string, []byte) error
	deleteFn         func(context.Context, uint) error
	searchFn         func(context.Context, string, int) ([]models.User, error)
}

func (s *userRepoStub) ExistsByUserAt(ctx context.Context, userAt string) (bool, error) {
	return s.existsByUserAtFn(ctx, userAt)
}
func (s *userRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.existsByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUserAt(ctx context.Context, userAt string) (*models.User, error) {
	return s.getByUserAtFn(ctx, userAt)
}
func (s *userRepoStub) VerifyPassword(ctx context.Context, email, plain string) bool {
	return s.verifyPasswordFn(ctx, email, plain)
}
func (s *userRepoStub) HasCredentials(ctx context.Context, claim auth.Claim) bool {
	return s.hasCredentialsFn(ctx, claim)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) UpdateEmail(ctx context.Context, id uint, email string) error {
	return s.updateEmailFn(ctx, id, email)
}
func (s *userRepoStub) UpdateUserAt(ctx context.Context, id uint, userAt string) error {
	return s.updateUserAtFn(ctx, id, userAt)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, username, bio string, icon []byte) error {
	return s.updateProfileFn(ctx, id, username, bio, icon)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) Search(ctx context.Context, q string, limit int) ([]models.User, error) {
	return s.searchFn(ctx, q, limit)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		existsByUserAtFn: func(context.Context, string) (bool, error) { return false, nil },
		existsByEmailFn:  func(context.Context, string) (bool, error) { return false, nil },
		createFn:         func(context.Context, *models.User) error { return nil },
		getByIDFn:        func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:     func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUserAtFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		verifyPasswordFn: func(context.Context, string, string) bool { return false },
		hasCredentialsFn: func(context.Context, auth.Claim) bool { return true },
		updatePasswordFn: func(context.Context, uint, string) error { return nil },
		updateEmailFn:    func(context.Context, uint, string) error { return nil },
		updateUserAtFn:   func(context.Context, uint, string) error { return nil },
		updateProfileFn:  func(context.Context, uint, string, string, []byte) error { return nil },
		deleteFn:         func(context.Context, uint) error { return nil },
		searchFn:         func(context.Context, string, int) ([]models.User, error) { return nil, nil },
	}
}

type followRepoStub struct {
	followFn        func(context.Context, uint, uint) (bool, error)
	unfollowFn      func(context.Context, uint, uint) (bool, error)
	isFollowingFn   func(context.Context, uint, uint) (bool, error)
	listFollowingFn func(context.Context, uint) ([]models.User, error)
	listFollowersFn func(context.Context, uint) ([]models.User, error)
}

func (s *followRepoStub) Follow(ctx context.Context, a, b uint) (bool, error) {
	return s.followFn(ctx, a, b)
}
func (s *followRepoStub) Unfollow(ctx context.Context, a, b uint) (bool, error) {
	return s.unfollowFn(ctx, a, b)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	return s.isFollowingFn(ctx, a, b)
}
func (s *followRepoStub) ListFollowing(ctx context.Context, id uint) ([]models.User, error) {
	return s.listFollowingFn(ctx, id)
}
func (s *followRepoStub) ListFollowers(ctx context.Context, id uint) ([]models.User, error) {
	return s.listFollowersFn(ctx, id)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn:        func(context.Context, uint, uint) (bool, error) { return true, nil },
		unfollowFn:      func(context.Context, uint, uint) (bool, error) { return true, nil },
		isFollowingFn:   func(context.Context, uint, uint) (bool, error) { return false, nil },
		listFollowingFn: func(context.Context, uint) ([]models.User, error) { return nil, nil },
		listFollowersFn: func(context.Context, uint) ([]models.User, error) { return nil, nil },
	}
}

type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	createCommentFn func(context.Context, uint, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, int, int) ([]models.Post, error)
	listByOwnerFn   func(context.Context, uint, int, int) ([]models.Post, error)
	listCommentsFn  func(context.Context, uint) ([]models.Post, error)
	updateContentFn func(context.Context, uint, string, []byte) error
	deleteFn        func(context.Context, uint) error
	likeFn          func(context.Context, uint, uint) (bool, error)
	unlikeFn        func(context.Context, uint, uint) (bool, error)
	likedPostIDsFn  func(context.Context, uint, []uint) (map[uint]bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error {
	return s.createFn(ctx, p)
}
func (s *postRepoStub) CreateComment(ctx context.Context, parentID uint, p *models.Post) error {
	return s.createCommentFn(ctx, parentID, p)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Post, error) {
	return s.listByOwnerFn(ctx, ownerID, limit, offset)
}
func (s *postRepoStub) ListComments(ctx context.Context, parentID uint) ([]models.Post, error) {
	return s.listCommentsFn(ctx, parentID)
}
func (s *postRepoStub) UpdateContent(ctx context.Context, id uint, text string, image []byte) error {
	return s.updateContentFn(ctx, id, text, image)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) (bool, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) LikedPostIDs(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	return s.likedPostIDsFn(ctx, userID, ids)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:        func(context.Context, *models.Post) error { return nil },
		createCommentFn: func(context.Context, uint, *models.Post) error { return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:          func(context.Context, int, int) ([]models.Post, error) { return nil, nil },
		listByOwnerFn:   func(context.Context, uint, int, int) ([]models.Post, error) { return nil, nil },
		listCommentsFn:  func(context.Context, uint) ([]models.Post, error) { return nil, nil },
		updateContentFn: func(context.Context, uint, string, []byte) error { return nil },
		deleteFn:        func(context.Context, uint) error { return nil },
		likeFn:          func(context.Context, uint, uint) (bool, error) { return true, nil },
		unlikeFn:        func(context.Context, uint, uint) (bool, error) { return true, nil },
		likedPostIDsFn:  func(context.Context, uint, []uint) (map[uint]bool, error) { return map[uint]bool{}, nil },
	}
}

type issuerStub struct {
	issued []auth.Claim
	err    error
}

func (s *issuerStub) Issue(claim auth.Claim) (auth.Session, error) {
	if s.err != nil {
		return auth.Session{}, s.err
	}
	s.issued = append(s.issued, claim)
	return auth.Session{Token: "token-" + claim.UserAt, JTI: "jti", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type revokerStub struct {
	jti string
	ttl time.Duration
	err error
}

func (s *revokerStub) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.jti, s.ttl = jti, ttl
	return s.err
}

// plainHasher stores passwords with a visible prefix so tests can assert on them.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(hash, plain string) bool   { return hash == "hashed:"+plain }

var testClaim = auth.Claim{ID: 1, UserAt: "ana", Email: "ana@example.com"}

func assertAppError(t *testing.T, err error, code, msg string) {
	t.Helper()
	if assert.Error(t, err) {
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, code, appErr.Code)
			assert.Equal(t, msg, appErr.Message)
		}
	}
}
