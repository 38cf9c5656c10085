package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postfeed/middleware"
	"github.com/cppla/postfeed/repositories"
	"github.com/cppla/postfeed/services"
	"github.com/cppla/postfeed/utils"
)

const detailCachePrefix = "cache:post:detail:"

// detailCacheTTL also bounds a stale entry written by a read that raced an invalidation.
const detailCacheTTL = time.Minute

// PostController exposes the post engagement workflows over HTTP.
type PostController struct {
	svc   *services.EngagementService
	cache utils.Cache
}

// NewPostController creates a new PostController instance. The cache holds
// post detail responses only; nil disables it.
func NewPostController(svc *services.EngagementService, cache utils.Cache) *PostController {
	if cache == nil {
		cache = utils.NopCache{}
	}
	return &PostController{svc: svc, cache: cache}
}

// ListPosts returns the public feed, newest first. It is not cached: authors are
// deleted upstream and their posts must leave the feed at once.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.svc.ListPublicFeed(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorw("list public feed failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{"items": posts})
}

// ListExplorePosts returns the explore feed for the caller.
func (p *PostController) ListExplorePosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	posts, err := p.svc.ListExploreFeed(ctx.Request.Context(), userID)
	if err != nil {
		utils.Sugar.Errorw("list explore feed failed", "user", userID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"items": posts})
}

// ListNetworkPosts returns posts from the caller and their connections.
func (p *PostController) ListNetworkPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	posts, err := p.svc.ListNetworkFeed(ctx.Request.Context(), userID)
	if err != nil {
		utils.Sugar.Errorw("list network feed failed", "user", userID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"items": posts})
}

// GetPost returns a single post with comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	if b, ok := p.cache.GetBytes(ctx.Request.Context(), detailCachePrefix+postID); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	post, err := p.svc.GetPost(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err, 40401, 50023, "failed to load post")
		return
	}

	payload := gin.H{"post": post}
	p.cache.SetJSON(ctx.Request.Context(), detailCachePrefix+postID, envelope(payload), detailCacheTTL)
	utils.Success(ctx, payload)
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		Image   string `json:"image"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "content cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post, err := p.svc.CreatePost(ctx.Request.Context(), userID, content, req.Image)
	if err != nil {
		respondError(ctx, err, 40401, 50020, "failed to create post")
		return
	}

	utils.Created(ctx, gin.H{"post": post})
}

// DeletePost removes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	if err := p.svc.DeletePost(ctx.Request.Context(), userID, postID); err != nil {
		respondError(ctx, err, 40403, 50026, "failed to delete post")
		return
	}

	p.invalidatePost(ctx, postID)
	utils.Success(ctx, gin.H{"id": postID, "deleted": true})
}

// CreateComment appends a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "content cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	post, err := p.svc.CreateComment(ctx.Request.Context(), userID, postID, content)
	if err != nil {
		respondError(ctx, err, 40402, 50024, "failed to create comment")
		return
	}

	p.invalidatePost(ctx, postID)
	utils.Success(ctx, gin.H{"post": post})
}

// ToggleLike likes the post, or removes the caller's like when present.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	post, err := p.svc.ToggleLike(ctx.Request.Context(), userID, postID)
	if err != nil {
		respondError(ctx, err, 40404, 50025, "failed to update like")
		return
	}

	p.invalidatePost(ctx, postID)
	utils.Success(ctx, gin.H{"post": post, "liked": post.LikedBy(userID)})
}

func (p *PostController) invalidatePost(ctx *gin.Context, postID string) {
	p.cache.InvalidateByPrefix(ctx.Request.Context(), detailCachePrefix+postID)
}

// respondError maps workflow errors to status codes. Internal causes are
// logged and never sent to the client.
func respondError(ctx *gin.Context, err error, notFoundCode, failCode int, failMsg string) {
	var valErr *repositories.ValidationError
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, notFoundCode, "post not found")
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40301, "permission denied")
	case errors.As(err, &valErr):
		utils.Error(ctx, http.StatusBadRequest, 40024, valErr.Message)
	default:
		utils.Sugar.Errorw(failMsg, "path", ctx.FullPath(), "post", ctx.Param("id"), "err", err)
		utils.Error(ctx, http.StatusInternalServerError, failCode, failMsg)
	}
}

func envelope(data interface{}) utils.JSONResponse {
	return utils.JSONResponse{Code: 0, Message: "success", Data: data}
}

func getUserID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
