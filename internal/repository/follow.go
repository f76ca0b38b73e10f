package repository

import (
	"context"

	"murmur/internal/cache"
	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository manages the directed follow graph and its denormalized counters.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, targetID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, targetID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, targetID uint) (bool, error)
	ListFollowing(ctx context.Context, userID uint) ([]models.User, error)
	ListFollowers(ctx context.Context, userID uint) ([]models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Follow adds the edge and bumps both counters. It reports false when the edge already existed.
func (r *followRepository) Follow(ctx context.Context, followerID, targetID uint) (bool, error) {
	if followerID == targetID {
		return false, models.NewConflictError("You can't follow yourself")
	}

	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FollowingID: targetID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true

		if err := tx.Model(&models.User{}).Where("id = ?", targetID).
			Update("followers_count", gorm.Expr("followers_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", followerID).
			Update("following_count", gorm.Expr("following_count + 1")).Error
	})
	return r.finish(ctx, "follow", changed, err, followerID, targetID)
}

// Unfollow removes the edge and lowers both counters. It reports false when there was no edge.
func (r *followRepository) Unfollow(ctx context.Context, followerID, targetID uint) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("follower_id = ? AND following_id = ?", followerID, targetID).
			Delete(&models.Follow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true

		if err := tx.Model(&models.User{}).Where("id = ?", targetID).
			Update("followers_count", decrementClamped("followers_count", 1)).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", followerID).
			Update("following_count", decrementClamped("following_count", 1)).Error
	})
	return r.finish(ctx, "unfollow", changed, err, followerID, targetID)
}

func (r *followRepository) finish(ctx context.Context, action string, changed bool, err error, ids ...uint) (bool, error) {
	if err != nil {
		return false, wrapTxError(err)
	}
	if changed {
		observability.FollowToggles.WithLabelValues(action).Inc()
		cache.InvalidateUser(ctx, ids...)
	}
	return changed, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, targetID uint) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, targetID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) listUsers(ctx context.Context, joinOn, where string, userID uint) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Select("users.id, users.username, users.user_at, users.icon").
		Joins("JOIN follows ON follows."+joinOn+" = users.id").
		Where("follows."+where+" = ?", userID).
		Order("follows.created_at DESC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListFollowing returns the users userID follows, newest edge first.
func (r *followRepository) ListFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "following_id", "follower_id", userID)
}

// ListFollowers returns the users following userID, newest edge first.
func (r *followRepository) ListFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follower_id", "following_id", userID)
}
