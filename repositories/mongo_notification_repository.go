package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cppla/postfeed/models"
)

// MongoNotificationRepository inserts into the notifications collection.
type MongoNotificationRepository struct {
	col *mongo.Collection
}

// NewMongoNotificationRepository creates a repository over the notifications collection.
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{col: db.Collection("notifications")}
}

// Write inserts one unread notification.
func (r *MongoNotificationRepository) Write(ctx context.Context, recipientID string, typ models.NotificationType, relatedUserID, relatedPostID string) (*models.Notification, error) {
	n := models.Notification{
		ID:            uuid.NewString(),
		RecipientID:   recipientID,
		Type:          typ,
		RelatedUserID: relatedUserID,
		RelatedPostID: relatedPostID,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MongoConnectionRepository reads the user_connections collection.
type MongoConnectionRepository struct {
	col *mongo.Collection
}

// NewMongoConnectionRepository creates a repository over the user_connections collection.
func NewMongoConnectionRepository(db *mongo.Database) *MongoConnectionRepository {
	return &MongoConnectionRepository{col: db.Collection("user_connections")}
}

// ListConnectionIDs returns the ids userID is directly connected to.
func (r *MongoConnectionRepository) ListConnectionIDs(ctx context.Context, userID string) ([]string, error) {
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetProjection(bson.M{"connection_id": 1}))
	if err != nil {
		return nil, err
	}
	var edges []models.UserConnection
	if err := cur.All(ctx, &edges); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ConnectionID)
	}
	return ids, nil
}

// MongoAssetDeletionRepository keeps the asset retry queue in a collection.
type MongoAssetDeletionRepository struct {
	col *mongo.Collection
}

// NewMongoAssetDeletionRepository creates a repository over the pending_asset_deletions collection.
func NewMongoAssetDeletionRepository(db *mongo.Database) *MongoAssetDeletionRepository {
	return &MongoAssetDeletionRepository{col: db.Collection("pending_asset_deletions")}
}

// Enqueue records ref for an immediate retry.
func (r *MongoAssetDeletionRepository) Enqueue(ctx context.Context, ref string, cause error) error {
	now := time.Now().UTC()
	_, err := r.col.InsertOne(ctx, models.PendingAssetDeletion{
		ID:        uuid.NewString(),
		Ref:       ref,
		Attempts:  1,
		LastError: truncateCause(cause),
		RetryAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}

// Due returns up to limit entries whose retry time has passed, oldest first.
func (r *MongoAssetDeletionRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.PendingAssetDeletion, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "retry_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"retry_at": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, err
	}
	var items []models.PendingAssetDeletion
	err = cur.All(ctx, &items)
	return items, err
}

// Done drops an entry from the queue.
func (r *MongoAssetDeletionRepository) Done(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Reschedule bumps the attempt count and sets the next retry time.
func (r *MongoAssetDeletionRepository) Reschedule(ctx context.Context, id string, retryAt time.Time, cause error) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"last_error": truncateCause(cause), "retry_at": retryAt, "updated_at": time.Now().UTC()},
	})
	return err
}
