package services

import (
	"context"

	"github.com/cppla/postfeed/models"
)

// AssetStore persists uploaded images and removes them again.
type AssetStore interface {
	Upload(ctx context.Context, payload string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// SentimentAnalyzer scores post content. A nil result means no score is
// available and is never an error.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) *models.Sentiment
}

// CommentMailer delivers comment notification emails.
type CommentMailer interface {
	SendCommentEmail(toEmail, toName, fromName, postURL, commentBody string) error
}
