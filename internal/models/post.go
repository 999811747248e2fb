package models

import "time"

// Post is a link or text submission on the board.
type Post struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	Title   string  `gorm:"size:300;not null" json:"title"`
	URL     *string `gorm:"column:url" json:"url"`
	Content *string `gorm:"type:text" json:"content"`
	UserID  uint    `gorm:"not null;index" json:"user_id"`
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"->;-:migration" json:"comments_count"`
	Comments      []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Likes         []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
