package models

import "time"

// Comment represents a reply to a post. Seq orders comments inside a post in SQL
// stores; document stores keep array order instead.
type Comment struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement" json:"-" bson:"-"`
	PostID    string    `gorm:"index;size:36;not null" json:"-" bson:"-"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id" bson:"user"`
	Content   string    `gorm:"type:text;not null" json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty" bson:"-"`
}
