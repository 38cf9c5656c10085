package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the minimal account projection the engagement core reads. Accounts are
// owned by the auth layer; a soft-deleted or missing user is a tombstone.
type User struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Username  string         `gorm:"size:64;index" json:"username,omitempty" bson:"username"`
	Name      string         `gorm:"size:128" json:"name,omitempty" bson:"name"`
	Email     string         `gorm:"size:255" json:"email,omitempty" bson:"email"`
	AvatarURL string         `gorm:"size:512" json:"avatar,omitempty" bson:"avatar"`
	Headline  string         `gorm:"size:255" json:"headline,omitempty" bson:"headline"`
	CreatedAt time.Time      `json:"-" bson:"created_at"`
	UpdatedAt time.Time      `json:"-" bson:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-" bson:"-"`
}

// BeforeCreate hook ensures the id and timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// UserConnection is a directed "follows / connected to" edge used by the network feed.
type UserConnection struct {
	UserID       string    `gorm:"primaryKey;size:36" json:"user_id" bson:"user_id"`
	ConnectionID string    `gorm:"primaryKey;size:36" json:"connection_id" bson:"connection_id"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
