package repository

import (
	"context"
	"errors"
	"strings"

	"murmur/internal/auth"
	"murmur/internal/cache"
	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	ExistsByUserAt(ctx context.Context, userAt string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUserAt(ctx context.Context, userAt string) (*models.User, error)
	VerifyPassword(ctx context.Context, email, plain string) bool
	HasCredentials(ctx context.Context, claim auth.Claim) bool
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateEmail(ctx context.Context, id uint, email string) error
	UpdateUserAt(ctx context.Context, id uint, userAt string) error
	UpdateProfile(ctx context.Context, id uint, username, bio string, icon []byte) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
}

type userRepository struct {
	db     *gorm.DB
	hasher auth.PasswordHasher
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB, hasher auth.PasswordHasher) UserRepository {
	return &userRepository{db: db, hasher: hasher}
}

func (r *userRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.User{}).
		Where(column+" = ?", value).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) ExistsByUserAt(ctx context.Context, userAt string) (bool, error) {
	return r.exists(ctx, "user_at", userAt)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

// Create inserts user. Unique violations surface as ErrUserAtTaken or ErrEmailTaken.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID never returns the password hash; use GetByEmail when it is needed.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "GetByID", "users")
	defer span.End()

	user, err := cache.Aside(ctx, cache.UserKey(id), cache.UserTTL, func() (models.User, error) {
		var user models.User
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return user, models.NewNotFoundError("User", id)
			}
			return user, models.NewInternalError(err)
		}
		user.Password = ""
		return user, nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) findOne(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where(column+" = ?", value).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no account has email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

// GetByUserAt returns (nil, nil) when no account has the handle.
func (r *userRepository) GetByUserAt(ctx context.Context, userAt string) (*models.User, error) {
	return r.findOne(ctx, "user_at", userAt)
}

// VerifyPassword reports whether plain is the password of the account with email.
// Lookup failures count as a mismatch.
func (r *userRepository) VerifyPassword(ctx context.Context, email, plain string) bool {
	user, err := r.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return false
	}
	return r.hasher.Verify(user.Password, plain)
}

// HasCredentials reports whether claim still matches the stored account.
func (r *userRepository) HasCredentials(ctx context.Context, claim auth.Claim) bool {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND email = ? AND user_at = ?", claim.ID, claim.Email, claim.UserAt).
		Count(&count).Error
	return err == nil && count == 1
}

func (r *userRepository) update(ctx context.Context, id uint, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		if conflict := userConflict(result.Error); conflict != nil {
			return conflict
		}
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.update(ctx, id, map[string]interface{}{"password": hash})
}

func (r *userRepository) UpdateEmail(ctx context.Context, id uint, email string) error {
	return r.update(ctx, id, map[string]interface{}{"email": email})
}

func (r *userRepository) UpdateUserAt(ctx context.Context, id uint, userAt string) error {
	return r.update(ctx, id, map[string]interface{}{"user_at": userAt})
}

// UpdateProfile overwrites the display fields. A nil icon clears it.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, username, bio string, icon []byte) error {
	return r.update(ctx, id, map[string]interface{}{
		"username": username,
		"bio":      bio,
		"icon":     icon,
	})
}

// Delete removes the account and everything hanging off it in one transaction,
// keeping the counters of every other user and post consistent.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Delete", "users")
	defer span.End()

	var touchedUsers []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return err
		}

		// Follow edges in both directions.
		var following, followers []uint
		if err := tx.Model(&models.Follow{}).Where("follower_id = ?", id).Pluck("following_id", &following).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Follow{}).Where("following_id = ?", id).Pluck("follower_id", &followers).Error; err != nil {
			return err
		}
		if len(following) > 0 {
			if err := tx.Model(&models.User{}).Where("id IN ?", following).
				Update("followers_count", decrementClamped("followers_count", 1)).Error; err != nil {
				return err
			}
		}
		if len(followers) > 0 {
			if err := tx.Model(&models.User{}).Where("id IN ?", followers).
				Update("following_count", decrementClamped("following_count", 1)).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("follower_id = ? OR following_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		touchedUsers = append(following, followers...)

		// Likes the user gave.
		var liked []uint
		if err := tx.Model(&models.PostLike{}).Where("user_id = ?", id).Pluck("post_id", &liked).Error; err != nil {
			return err
		}
		if len(liked) > 0 {
			if err := tx.Model(&models.Post{}).Where("id IN ?", liked).
				Update("likes_count", decrementClamped("likes_count", 1)).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
		}

		// Posts and comments the user owns, plus other users' comments on them.
		var owned []uint
		if err := tx.Model(&models.Post{}).Where("owner_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		if len(owned) == 0 {
			return tx.Delete(&models.User{}, id).Error
		}

		var replies []uint
		if err := tx.Model(&models.Post{}).Where("parent_id IN ?", owned).Pluck("id", &replies).Error; err != nil {
			return err
		}

		// Comments on posts that survive lower those posts' comment counts.
		type parentCount struct {
			ParentID uint
			N        int
		}
		var parents []parentCount
		if err := tx.Model(&models.Post{}).
			Select("parent_id, COUNT(*) AS n").
			Where("owner_id = ? AND parent_id IS NOT NULL AND parent_id NOT IN ?", id, owned).
			Group("parent_id").
			Scan(&parents).Error; err != nil {
			return err
		}
		for _, p := range parents {
			if err := tx.Model(&models.Post{}).Where("id = ?", p.ParentID).
				Update("comments_count", decrementClamped("comments_count", p.N)).Error; err != nil {
				return err
			}
		}

		doomed := append(replies, owned...)
		if err := tx.Where("post_id IN ?", doomed).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if len(replies) > 0 {
			if err := tx.Where("id IN ?", replies).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id IN ?", owned).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		observability.RecordError(span, err)
		return wrapTxError(err)
	}

	cache.InvalidateUser(ctx, append(touchedUsers, id)...)
	return nil
}

// Search matches query case-insensitively against handles and display names.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Where(`LOWER(user_at) LIKE ? ESCAPE '\' OR LOWER(username) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("followers_count DESC, id ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
