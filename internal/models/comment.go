package models

import "time"

// Comment is a remark on a post. A comment with a ParentID is a reply to
// another comment on the same post.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	PostID   uint      `gorm:"not null;index" json:"post_id"`
	ParentID *uint     `gorm:"index" json:"parent_id"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Replies  []Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	// ReplyCount is not persisted; computed at query time
	ReplyCount int       `gorm:"->;-:migration" json:"reply_count"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsReply reports whether c answers another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != nil
}
