package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingAssetDeletion records an asset whose best-effort removal failed, for the
// background cleaner to retry.
type PendingAssetDeletion struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Ref       string    `gorm:"size:1024;not null" json:"ref" bson:"ref"` // public reference returned by the asset store
	Attempts  int       `gorm:"not null;default:0" json:"attempts" bson:"attempts"`
	LastError string    `gorm:"size:512" json:"last_error" bson:"last_error"`
	RetryAt   time.Time `gorm:"index" json:"retry_at" bson:"retry_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// BeforeCreate assigns the record id.
func (d *PendingAssetDeletion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
