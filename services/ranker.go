package services

import (
	"context"

	"github.com/cppla/postfeed/models"
)

// FeedRanker orders the explore feed for an actor. Implementations receive
// posts already sorted newest first.
type FeedRanker interface {
	Rank(ctx context.Context, actorID string, posts []models.Post) []models.Post
}

// ChronologicalRanker keeps the newest-first order unchanged.
type ChronologicalRanker struct{}

// Rank returns posts unchanged.
func (ChronologicalRanker) Rank(_ context.Context, _ string, posts []models.Post) []models.Post {
	return posts
}
