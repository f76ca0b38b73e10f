package models

import (
	"time"
)

// Post is a short text and/or image published by a user.
// A post with ParentID set is a comment on that parent post.
type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"not null;index" json:"owner_id"`
	Owner         User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	ParentID      *uint     `gorm:"index" json:"parent_id,omitempty"`
	Text          string    `gorm:"type:text;not null;default:''" json:"text"`
	Image         []byte    `json:"image,omitempty"`
	LikesCount    int       `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
	UnixTime      int64     `gorm:"not null;index" json:"unix_time"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// IsComment reports whether the post hangs off another post.
func (p *Post) IsComment() bool {
	return p.ParentID != nil
}

// ImageString returns the stored image data URL, or "" when none is set.
func (p *Post) ImageString() string {
	if p == nil || len(p.Image) == 0 {
		return ""
	}
	return string(p.Image)
}

// PostLike records that UserID liked PostID. The pair is unique.
type PostLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index:idx_post_likes_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (PostLike) TableName() string {
	return "post_likes"
}
