// Package models contains data structures for the board's domain models.
package models

import "time"

// User represents a registered board member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the public projection of a user embedded in other resources.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Summary returns the public projection of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}
