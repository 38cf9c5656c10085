package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/cppla/postfeed/models"
	"github.com/cppla/postfeed/repositories"
	"github.com/cppla/postfeed/utils"
)

// Deps are the collaborators of EngagementService. Sentiment, Mailer and
// PendingAssets are optional.
type Deps struct {
	Posts         repositories.PostRepository
	Notifications repositories.NotificationRepository
	Connections   repositories.ConnectionRepository
	PendingAssets repositories.AssetDeletionRepository
	Assets        AssetStore
	Sentiment     SentimentAnalyzer
	Mailer        CommentMailer
}

// Options carries explicit configuration for the workflows.
type Options struct {
	// PublicBaseURL prefixes links in comment emails, e.g. https://example.com.
	PublicBaseURL string
	Ranker        FeedRanker
}

// EngagementService runs the post workflows: feeds, create, delete, comment and like.
type EngagementService struct {
	posts         repositories.PostRepository
	notifications repositories.NotificationRepository
	connections   repositories.ConnectionRepository
	pendingAssets repositories.AssetDeletionRepository
	assets        AssetStore
	sentiment     SentimentAnalyzer
	email         *EmailDispatcher
	ranker        FeedRanker
	baseURL       string
	tasks         *Background
}

// NewEngagementService wires the service.
func NewEngagementService(deps Deps, opts Options) *EngagementService {
	tasks := &Background{}
	ranker := opts.Ranker
	if ranker == nil {
		ranker = ChronologicalRanker{}
	}
	return &EngagementService{
		posts:         deps.Posts,
		notifications: deps.Notifications,
		connections:   deps.Connections,
		pendingAssets: deps.PendingAssets,
		assets:        deps.Assets,
		sentiment:     deps.Sentiment,
		email:         NewEmailDispatcher(deps.Mailer, tasks),
		ranker:        ranker,
		baseURL:       strings.TrimRight(opts.PublicBaseURL, "/"),
		tasks:         tasks,
	}
}

// ListPublicFeed returns every post with a live author, newest first.
func (s *EngagementService) ListPublicFeed(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListAll(ctx, repositories.PostFilter{})
}

// ListExploreFeed returns the public feed ordered by the configured ranker.
func (s *EngagementService) ListExploreFeed(ctx context.Context, actorID string) ([]models.Post, error) {
	posts, err := s.posts.ListAll(ctx, repositories.PostFilter{})
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(ctx, actorID, posts), nil
}

// ListNetworkFeed returns posts authored by the actor or the actor's direct connections.
func (s *EngagementService) ListNetworkFeed(ctx context.Context, actorID string) ([]models.Post, error) {
	var ids []string
	if s.connections != nil {
		conns, err := s.connections.ListConnectionIDs(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("list connections: %w", err)
		}
		ids = conns
	}
	authors := utils.UniqueStrings(append(ids, actorID))
	return s.posts.ListAll(ctx, repositories.PostFilter{AuthorIDs: authors})
}

// GetPost loads one post with detail projections.
func (s *EngagementService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

// CreatePost scores the content, uploads the optional image and persists the post.
// A failed upload aborts creation; a missing sentiment score does not.
// The analyzer sees the unescaped text.
func (s *EngagementService) CreatePost(ctx context.Context, actorID, content, image string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, repositories.NewValidationError("content", "content is required")
	}

	var sentiment *models.Sentiment
	if s.sentiment != nil {
		sentiment = s.sentiment.Analyze(ctx, html.UnescapeString(content))
	}

	var ref string
	if strings.TrimSpace(image) != "" {
		if s.assets == nil {
			return nil, fmt.Errorf("%w: no asset store configured", ErrAssetUpload)
		}
		uploaded, err := s.assets.Upload(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAssetUpload, err)
		}
		ref = uploaded
	}

	post, err := s.posts.Create(ctx, actorID, content, ref, sentiment)
	if err != nil {
		if ref != "" {
			s.removeAsset(ctx, ref)
		}
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post owned by the actor. Its image is removed in the
// background; a failed removal is queued for retry and never fails the request.
func (s *EngagementService) DeletePost(ctx context.Context, actorID, postID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return ErrForbidden
	}
	if err := s.posts.DeleteByID(ctx, postID); err != nil {
		return err
	}
	if post.Image != "" {
		s.removeAsset(ctx, post.Image)
	}
	return nil
}

// CreateComment appends a comment. A non-author commenter triggers a comment
// notification and a best-effort email to the post author. Content arrives
// sanitized and escaped; the plain-text email gets it unescaped.
func (s *EngagementService) CreateComment(ctx context.Context, actorID, postID, content string) (*models.Post, error) {
	post, err := s.posts.AppendComment(ctx, postID, actorID, content)
	if err != nil {
		return nil, err
	}
	if post.UserID == actorID {
		return post, nil
	}
	if _, err := s.notifications.Write(ctx, post.UserID, models.NotificationComment, actorID, post.ID); err != nil {
		return nil, fmt.Errorf("write comment notification: %w", err)
	}
	if post.User != nil {
		s.email.SendCommentEmail(ctx, post.User.Email, post.User.Name, commenterName(post, actorID), s.postURL(post.ID), html.UnescapeString(content))
	}
	return post, nil
}

// ToggleLike flips the actor's like. Only a like by someone other than the
// author writes a notification; unlikes never do.
func (s *EngagementService) ToggleLike(ctx context.Context, actorID, postID string) (*models.Post, error) {
	post, liked, err := s.posts.ToggleLike(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}
	if liked && post.UserID != actorID {
		if _, err := s.notifications.Write(ctx, post.UserID, models.NotificationLike, actorID, post.ID); err != nil {
			return nil, fmt.Errorf("write like notification: %w", err)
		}
	}
	return post, nil
}

// Wait blocks until background email and asset work finishes or ctx expires.
func (s *EngagementService) Wait(ctx context.Context) error {
	return s.tasks.Wait(ctx)
}

func (s *EngagementService) postURL(postID string) string {
	return s.baseURL + "/posts/" + postID
}

func (s *EngagementService) removeAsset(ctx context.Context, ref string) {
	if s.assets == nil {
		return
	}
	s.tasks.Go(ctx, "asset-delete", func(ctx context.Context) {
		err := s.assets.Delete(ctx, ref)
		if err == nil {
			return
		}
		utils.Sugar.Warnw("asset delete failed", "ref", ref, "err", err)
		if s.pendingAssets == nil || errors.Is(err, utils.ErrForeignAsset) {
			return
		}
		if qerr := s.pendingAssets.Enqueue(ctx, ref, err); qerr != nil {
			utils.Sugar.Errorw("asset delete could not be queued", "ref", ref, "err", qerr)
		}
	})
}

// commenterName picks the display name of the actor's newest comment.
func commenterName(post *models.Post, actorID string) string {
	for i := len(post.Comments) - 1; i >= 0; i-- {
		c := post.Comments[i]
		if c.UserID != actorID || c.User == nil {
			continue
		}
		if c.User.Name != "" {
			return c.User.Name
		}
		if c.User.Username != "" {
			return c.User.Username
		}
		break
	}
	return "Someone"
}
