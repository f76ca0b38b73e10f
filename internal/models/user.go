// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is a registered account. UserAt is the public handle, Username the display name.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:64;not null" json:"username"`
	UserAt         string    `gorm:"size:64;not null;uniqueIndex:idx_users_user_at" json:"user_at"`
	Email          string    `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	Bio            string    `gorm:"type:text;not null;default:''" json:"bio"`
	Icon           []byte    `json:"icon,omitempty"`
	FollowersCount int       `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int       `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// IconString returns the stored icon data URL, or "" when none is set.
func (u *User) IconString() string {
	if u == nil || len(u.Icon) == 0 {
		return ""
	}
	return string(u.Icon)
}
