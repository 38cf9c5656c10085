package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/postfeed/models"
)

// GormNotificationRepository writes notifications to the notifications table.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository instance.
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Write inserts one unread notification.
func (r *GormNotificationRepository) Write(ctx context.Context, recipientID string, typ models.NotificationType, relatedUserID, relatedPostID string) (*models.Notification, error) {
	n := models.Notification{
		RecipientID:   recipientID,
		Type:          typ,
		RelatedUserID: relatedUserID,
		RelatedPostID: relatedPostID,
		CreatedAt:     time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// GormConnectionRepository reads the user_connections edge table.
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository instance.
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// ListConnectionIDs returns the ids userID is directly connected to.
func (r *GormConnectionRepository) ListConnectionIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.UserConnection{}).
		Where("user_id = ?", userID).
		Pluck("connection_id", &ids).Error
	return ids, err
}

// GormAssetDeletionRepository keeps the retry queue for failed asset removals.
type GormAssetDeletionRepository struct {
	db *gorm.DB
}

// NewGormAssetDeletionRepository creates a new GormAssetDeletionRepository instance.
func NewGormAssetDeletionRepository(db *gorm.DB) *GormAssetDeletionRepository {
	return &GormAssetDeletionRepository{db: db}
}

// Enqueue records ref for an immediate retry.
func (r *GormAssetDeletionRepository) Enqueue(ctx context.Context, ref string, cause error) error {
	return r.db.WithContext(ctx).Create(&models.PendingAssetDeletion{
		Ref:       ref,
		Attempts:  1,
		LastError: truncateCause(cause),
		RetryAt:   time.Now(),
	}).Error
}

// Due returns up to limit entries whose retry time has passed, oldest first.
func (r *GormAssetDeletionRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.PendingAssetDeletion, error) {
	var items []models.PendingAssetDeletion
	err := r.db.WithContext(ctx).
		Where("retry_at <= ?", now).
		Order("retry_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Done drops an entry from the queue.
func (r *GormAssetDeletionRepository) Done(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PendingAssetDeletion{}).Error
}

// Reschedule bumps the attempt count and sets the next retry time.
func (r *GormAssetDeletionRepository) Reschedule(ctx context.Context, id string, retryAt time.Time, cause error) error {
	return r.db.WithContext(ctx).
		Model(&models.PendingAssetDeletion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": truncateCause(cause),
			"retry_at":   retryAt,
		}).Error
}
