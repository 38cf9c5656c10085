package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/cppla/postfeed/models"
)

// PostFilter narrows a feed query. A nil AuthorIDs means no authorship filter.
type PostFilter struct {
	AuthorIDs []string
}

// PostRepository stores post aggregates. Reads attach user summaries and drop
// posts whose author no longer resolves; mutations are single atomic operations.
type PostRepository interface {
	ListAll(ctx context.Context, filter PostFilter) ([]models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, authorID, content, image string, sentiment *models.Sentiment) (*models.Post, error)
	DeleteByID(ctx context.Context, id string) error
	AppendComment(ctx context.Context, postID, userID, content string) (*models.Post, error)
	// ToggleLike flips userID's membership in the like set. liked is true when
	// this call added the like.
	ToggleLike(ctx context.Context, postID, userID string) (post *models.Post, liked bool, err error)
}

// NotificationRepository persists notification records.
type NotificationRepository interface {
	Write(ctx context.Context, recipientID string, typ models.NotificationType, relatedUserID, relatedPostID string) (*models.Notification, error)
}

// ConnectionRepository resolves a user's direct connections.
type ConnectionRepository interface {
	ListConnectionIDs(ctx context.Context, userID string) ([]string, error)
}

// AssetDeletionRepository queues asset references whose removal must be retried.
type AssetDeletionRepository interface {
	Enqueue(ctx context.Context, ref string, cause error) error
	Due(ctx context.Context, now time.Time, limit int) ([]models.PendingAssetDeletion, error)
	Done(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, retryAt time.Time, cause error) error
}

func validatePost(authorID, content string) error {
	if strings.TrimSpace(authorID) == "" {
		return NewValidationError("author", "author is required")
	}
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "content is required")
	}
	return nil
}

func validateComment(userID, content string) error {
	if strings.TrimSpace(userID) == "" {
		return NewValidationError("user", "user is required")
	}
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "content is required")
	}
	return nil
}

func truncateCause(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
