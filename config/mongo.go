package config

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// InitMongo connects to MongoDB and returns the configured database handle.
func InitMongo(cfg AppConfig) (*mongo.Client, *mongo.Database) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		log.Fatalf("failed to connect mongo: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("mongo ping failed: %v", err)
	}
	return client, client.Database(cfg.MongoDB)
}

// EnsureMongoIndexes creates the indexes the feed and notification queries rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("posts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, Options: options.Index().SetName("feed_order")},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("author_feed")},
	}); err != nil {
		return err
	}
	if _, err := db.Collection("user_connections").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "connection_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user_connection"),
	}); err != nil {
		return err
	}
	_, err := db.Collection("notifications").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "recipient", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("recipient_recent"),
	})
	return err
}
