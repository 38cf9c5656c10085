package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType enumerates the engagement events that notify a post author.
type NotificationType string

const (
	NotificationComment NotificationType = "comment"
	NotificationLike    NotificationType = "like"
)

// Notification is a durable record for the post author. It outlives the post.
type Notification struct {
	ID            string           `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	RecipientID   string           `gorm:"index;size:36;not null" json:"recipient" bson:"recipient"`
	Type          NotificationType `gorm:"size:16;not null" json:"type" bson:"type"`
	RelatedUserID string           `gorm:"size:36;not null" json:"related_user" bson:"related_user"`
	RelatedPostID string           `gorm:"size:36;index" json:"related_post" bson:"related_post"`
	Read          bool             `gorm:"default:false" json:"read" bson:"read"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
}

// BeforeCreate assigns the notification id.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
