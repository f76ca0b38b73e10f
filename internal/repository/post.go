package repository

import (
	"context"
	"errors"
	"time"

	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post and comment data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	CreateComment(ctx context.Context, parentID uint, comment *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Post, error)
	ListComments(ctx context.Context, parentID uint) ([]models.Post, error)
	UpdateContent(ctx context.Context, id uint, text string, image []byte) error
	Delete(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, postID uint) (bool, error)
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func withOwner(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "username", "user_at", "icon")
	})
}

func newest(db *gorm.DB) *gorm.DB {
	return db.Order("unix_time DESC").Order("id DESC")
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func stamp(post *models.Post) {
	if post.UnixTime == 0 {
		post.UnixTime = time.Now().UnixMilli()
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	stamp(post)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// CreateComment attaches comment to a top-level post and bumps its comment count.
// Comments cannot be commented on.
func (r *postRepository) CreateComment(ctx context.Context, parentID uint, comment *models.Post) error {
	stamp(comment)
	comment.ParentID = &parentID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.Post
		if err := tx.Select("id", "parent_id").First(&parent, parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", parentID)
			}
			return err
		}
		if parent.IsComment() {
			return models.NewNotFoundError("Post", parentID)
		}

		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", parentID).
			Update("comments_count", gorm.Expr("comments_count + 1")).Error
	})
	return wrapTxError(err)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := withOwner(readDB(r.db).WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// List returns top-level posts from everyone, newest first.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []models.Post
	if err := newest(withOwner(readDB(r.db).WithContext(ctx))).
		Where("parent_id IS NULL").
		Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListByOwner returns ownerID's top-level posts, newest first.
func (r *postRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []models.Post
	if err := newest(withOwner(readDB(r.db).WithContext(ctx))).
		Where("owner_id = ? AND parent_id IS NULL", ownerID).
		Limit(limit).Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListComments returns the comments on parentID, newest first.
func (r *postRepository) ListComments(ctx context.Context, parentID uint) ([]models.Post, error) {
	var comments []models.Post
	if err := newest(withOwner(readDB(r.db).WithContext(ctx))).
		Where("parent_id = ?", parentID).
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id uint, text string, image []byte) error {
	result := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]interface{}{"text": text, "image": image})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Delete removes a post or comment with its likes. Deleting a post also removes
// its comments; deleting a comment lowers the parent's comment count.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Delete", "posts")
	defer span.End()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "parent_id").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return err
		}

		var replies []uint
		if err := tx.Model(&models.Post{}).Where("parent_id = ?", id).Pluck("id", &replies).Error; err != nil {
			return err
		}
		if len(replies) > 0 {
			if err := tx.Where("post_id IN ?", replies).Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", replies).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, id).Error; err != nil {
			return err
		}

		if post.ParentID != nil {
			return tx.Model(&models.Post{}).Where("id = ?", *post.ParentID).
				Update("comments_count", decrementClamped("comments_count", 1)).Error
		}
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
	}
	return wrapTxError(err)
}

// Like records userID's like on postID. It reports false when the like already existed.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) (bool, error) {
	changed := false
	var target string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = likeTarget(tx, postID); err != nil {
			return err
		}

		result := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{UserID: userID, PostID: postID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Update("likes_count", gorm.Expr("likes_count + 1")).Error
	})
	if err != nil {
		return false, wrapTxError(err)
	}
	if changed {
		observability.LikeToggles.WithLabelValues(target, "like").Inc()
	}
	return changed, nil
}

// Unlike removes userID's like on postID. It reports false when there was none.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	changed := false
	var target string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = likeTarget(tx, postID); err != nil {
			return err
		}

		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Update("likes_count", decrementClamped("likes_count", 1)).Error
	})
	if err != nil {
		return false, wrapTxError(err)
	}
	if changed {
		observability.LikeToggles.WithLabelValues(target, "unlike").Inc()
	}
	return changed, nil
}

func likeTarget(tx *gorm.DB, postID uint) (string, error) {
	var post models.Post
	if err := tx.Select("id", "parent_id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", models.NewNotFoundError("Post", postID)
		}
		return "", err
	}
	if post.IsComment() {
		return "comment", nil
	}
	return "post", nil
}

// LikedPostIDs returns the subset of postIDs that userID has liked.
func (r *postRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func wrapTxError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}
