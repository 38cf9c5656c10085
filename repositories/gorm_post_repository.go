package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/postfeed/models"
)

// GormPostRepository is the SQL PostRepository. Comments are rows ordered by
// their sequence; likes are (post, user) rows under a composite key.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GormPostRepository instance.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

func selectColumns(cols []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Select(cols) }
}

func commentOrder(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// ListAll returns feed rows newest first. The inner join on live users is the
// tombstone filter.
func (r *GormPostRepository) ListAll(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.*").
		Joins("JOIN users ON users.id = posts.user_id AND users.deleted_at IS NULL")
	if filter.AuthorIDs != nil {
		if len(filter.AuthorIDs) == 0 {
			return []models.Post{}, nil
		}
		q = q.Where("posts.user_id IN ?", filter.AuthorIDs)
	}

	var posts []models.Post
	err := q.Order("posts.created_at DESC").Order("posts.id DESC").
		Preload("User", selectColumns(feedAuthorColumns)).
		Preload("Comments", commentOrder).
		Preload("Comments.User", selectColumns(feedCommenterColumns)).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	// The author can vanish between the join and the preload.
	live := posts[:0]
	for _, p := range posts {
		if p.User != nil {
			live = append(live, p)
		}
	}
	if err := r.attachLikes(ctx, live); err != nil {
		return nil, err
	}
	return live, nil
}

// GetByID loads one post with the detail projection. The author may be nil when
// the account is gone; the post itself is still returned.
func (r *GormPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User", selectColumns(detailAuthorColumns)).
		Preload("Comments", commentOrder).
		Preload("Comments.User", selectColumns(detailCommenterColumns)).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	posts := []models.Post{post}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Create persists a new post and returns it populated.
func (r *GormPostRepository) Create(ctx context.Context, authorID, content, image string, sentiment *models.Sentiment) (*models.Post, error) {
	if err := validatePost(authorID, content); err != nil {
		return nil, err
	}
	post := models.Post{
		UserID:    authorID,
		Content:   content,
		Image:     image,
		Sentiment: sentiment,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&post).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, post.ID)
}

// DeleteByID removes the post with its comments and likes. Notifications are kept.
func (r *GormPostRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error
	})
}

// AppendComment inserts one comment row; the sequence column fixes its position.
func (r *GormPostRepository) AppendComment(ctx context.Context, postID, userID, content string) (*models.Post, error) {
	if err := validateComment(userID, content); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePost(tx, postID); err != nil {
			return err
		}
		comment := models.Comment{PostID: postID, UserID: userID, Content: content}
		return tx.Omit(clause.Associations).Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, postID)
}

// ToggleLike deletes the (post, user) row if present, otherwise inserts it.
// Concurrent inserts for the same pair collapse on the primary key.
func (r *GormPostRepository) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		liked = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	post, err := r.GetByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return post, liked, nil
}

func ensurePost(tx *gorm.DB, postID string) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormPostRepository) attachLikes(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	var likes []models.PostLike
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("created_at ASC").
		Find(&likes).Error; err != nil {
		return err
	}
	byPost := make(map[string][]string, len(posts))
	for _, l := range likes {
		byPost[l.PostID] = append(byPost[l.PostID], l.UserID)
	}
	for i := range posts {
		posts[i].Likes = byPost[posts[i].ID]
		normalize(&posts[i])
	}
	return nil
}
