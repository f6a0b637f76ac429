package models

import (
	"time"
)

// Post is the content aggregate: the post itself plus its likes and comments,
// always read and mutated together.
type Post struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user"`
	Text   string `gorm:"type:text;not null" json:"text"`
	// Name and Avatar are the author's profile at creation time, not a live join.
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Likes     []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt time.Time `gorm:"index" json:"date"`
}

// Like records that a user liked a post. (PostID, UserID) is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"user"`
	CreatedAt time.Time `json:"-"`
}

// Comment is a reply on a post with the commenter's profile snapshot.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"-"`
	UserID    uint      `gorm:"not null" json:"user"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"date"`
}
