package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cppla/postfeed/models"
)

// MongoPostRepository keeps each post as one document with embedded comments and
// a likes array, so every mutation is a single-document update.
type MongoPostRepository struct {
	posts *mongo.Collection
	users *mongo.Collection
}

// NewMongoPostRepository creates a repository over the posts and users collections.
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		posts: db.Collection("posts"),
		users: db.Collection("users"),
	}
}

// ListAll returns feed documents newest first, dropping posts whose author is gone.
func (r *MongoPostRepository) ListAll(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	q := bson.M{}
	if filter.AuthorIDs != nil {
		if len(filter.AuthorIDs) == 0 {
			return []models.Post{}, nil
		}
		q["author"] = bson.M{"$in": filter.AuthorIDs}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.posts.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return r.populate(ctx, posts, false)
}

// GetByID loads one post with the detail projection.
func (r *MongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.populateOne(ctx, post)
}

// Create inserts a new post document and returns it populated.
func (r *MongoPostRepository) Create(ctx context.Context, authorID, content, image string, sentiment *models.Sentiment) (*models.Post, error) {
	if err := validatePost(authorID, content); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	post := models.Post{
		ID:        uuid.NewString(),
		UserID:    authorID,
		Content:   content,
		Image:     image,
		Sentiment: sentiment,
		Likes:     []string{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return nil, err
	}
	return r.populateOne(ctx, post)
}

// DeleteByID removes the post document. Notifications are kept.
func (r *MongoPostRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendComment pushes onto the embedded comments array.
func (r *MongoPostRepository) AppendComment(ctx context.Context, postID, userID, content string) (*models.Post, error) {
	if err := validateComment(userID, content); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	update := bson.M{
		"$push": bson.M{"comments": models.Comment{UserID: userID, Content: content, CreatedAt: now}},
		"$set":  bson.M{"updated_at": now},
	}
	return r.updateOne(ctx, postID, update)
}

// ToggleLike flips membership with one pipeline update, so there is no
// read-modify-write window between checking and changing the set.
func (r *MongoPostRepository) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}
	uid := bson.D{{Key: "$literal", Value: userID}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "likes", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$in", Value: bson.A{uid, likes}}},
				bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: likes},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", uid}}}},
				}}},
				bson.D{{Key: "$concatArrays", Value: bson.A{likes, bson.A{uid}}}},
			}}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}
	post, err := r.updateOne(ctx, postID, update)
	if err != nil {
		return nil, false, err
	}
	return post, post.LikedBy(userID), nil
}

func (r *MongoPostRepository) updateOne(ctx context.Context, postID string, update interface{}) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	if err := r.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.populateOne(ctx, post)
}

func (r *MongoPostRepository) populateOne(ctx context.Context, post models.Post) (*models.Post, error) {
	posts, err := r.populate(ctx, []models.Post{post}, true)
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// populate resolves authors and commenters with one $in query. In feed mode
// posts with a missing author are dropped; detail mode keeps them.
func (r *MongoPostRepository) populate(ctx context.Context, posts []models.Post, detail bool) ([]models.Post, error) {
	if len(posts) == 0 {
		return []models.Post{}, nil
	}
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.UserID)
		for _, c := range p.Comments {
			add(c.UserID)
		}
	}

	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		author, ok := byID[p.UserID]
		if !ok && !detail {
			continue
		}
		if ok {
			p.User = authorSummary(author, detail)
		}
		for i := range p.Comments {
			if u, ok := byID[p.Comments[i].UserID]; ok {
				p.Comments[i].User = commenterSummary(u, detail)
			}
		}
		normalize(&p)
		out = append(out, p)
	}
	return out, nil
}
