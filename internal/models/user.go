// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"date"`
}

// Public returns a copy of the user with the password hash cleared.
func (u User) Public() *User {
	u.Password = ""
	return &u
}

// Profile is the view of a user served to unauthenticated callers. It never
// carries the email address.
type Profile struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"date"`
}

// PublicProfile projects u onto Profile.
func (u User) PublicProfile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}
