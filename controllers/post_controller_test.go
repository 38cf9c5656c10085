package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/postfeed/config"
	"github.com/cppla/postfeed/controllers"
	"github.com/cppla/postfeed/models"
	"github.com/cppla/postfeed/repositories"
	"github.com/cppla/postfeed/routes"
	"github.com/cppla/postfeed/services"
	"github.com/cppla/postfeed/utils"
)

const testSecret = "controller-test-secret"

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type env struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *services.EngagementService
	tokens map[string]string
}

func setup(t *testing.T) *env {
	t.Helper()
	return setupWithCache(t, nil)
}

func setupWithCache(t *testing.T, cache utils.Cache) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig("silent"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	users := []models.User{
		{ID: "user-a", Username: "alice", Name: "Alice", Email: "alice@example.com"},
		{ID: "user-b", Username: "bob", Name: "Bob", Email: "bob@example.com"},
	}
	require.NoError(t, db.Create(&users).Error)

	dir := t.TempDir()
	cfg := config.AppConfig{
		JWTSecret:          testSecret,
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		LogLevel:           "error",
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
		AssetsDir:          filepath.Join(dir, "uploads"),
		AssetsPublicPrefix: "/static/uploads",
		AssetsMaxBytes:     1 << 20,
		AssetsMaxWidth:     200,
		AssetsJPEGQuality:  80,
	}

	svc := services.NewEngagementService(services.Deps{
		Posts:         repositories.NewGormPostRepository(db),
		Notifications: repositories.NewGormNotificationRepository(db),
		Connections:   repositories.NewGormConnectionRepository(db),
		PendingAssets: repositories.NewGormAssetDeletionRepository(db),
		Assets:        utils.NewAssetStore(cfg),
	}, services.Options{PublicBaseURL: "https://feed.example.com"})

	tokens := map[string]string{}
	for _, u := range users {
		tok, err := utils.GenerateToken([]byte(testSecret), u.ID, u.Username, time.Hour)
		require.NoError(t, err)
		tokens[u.ID] = tok
	}

	return &env{
		router: routes.SetupRouter(cfg, controllers.NewPostController(svc, cache)),
		db:     db,
		svc:    svc,
		tokens: tokens,
	}
}

func (e *env) do(t *testing.T, method, path, actor string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[actor])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func decodePost(t *testing.T, raw json.RawMessage) models.Post {
	t.Helper()
	var data struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	return data.Post
}

func decodeItems(t *testing.T, raw json.RawMessage) []models.Post {
	t.Helper()
	var data struct {
		Items []models.Post `json:"items"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	return data.Items
}

func TestRequiresAuth(t *testing.T) {
	e := setup(t)

	w, resp := e.do(t, http.MethodGet, "/api/v1/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, resp.Code)

	w, _ = e.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostEngagementFlow(t *testing.T) {
	e := setup(t)

	w, resp := e.do(t, http.MethodPost, "/api/v1/posts", "user-a", gin.H{"content": "hello <script>alert(1)</script>"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodePost(t, resp.Data)
	assert.Equal(t, "hello", created.Content, "markup is sanitized")
	assert.Empty(t, created.Image)
	assert.Empty(t, created.Likes)
	assert.Empty(t, created.Comments)
	assert.Nil(t, created.Sentiment)

	w, resp = e.do(t, http.MethodPost, "/api/v1/posts/"+created.ID+"/like", "user-b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"user-b"}, decodePost(t, resp.Data).Likes)

	w, resp = e.do(t, http.MethodPost, "/api/v1/posts/"+created.ID+"/like", "user-b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodePost(t, resp.Data).Likes)

	w, resp = e.do(t, http.MethodPost, "/api/v1/posts/"+created.ID+"/comments", "user-b", gin.H{"content": "nice"})
	require.Equal(t, http.StatusOK, w.Code)
	commented := decodePost(t, resp.Data)
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, "user-b", commented.Comments[0].UserID)
	assert.Equal(t, "nice", commented.Comments[0].Content)

	var notes []models.Notification
	require.NoError(t, e.db.Order("created_at ASC").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotificationLike, notes[0].Type)
	assert.Equal(t, models.NotificationComment, notes[1].Type)
	for _, n := range notes {
		assert.Equal(t, "user-a", n.RecipientID)
		assert.Equal(t, "user-b", n.RelatedUserID)
		assert.Equal(t, created.ID, n.RelatedPostID)
	}

	w, resp = e.do(t, http.MethodGet, "/api/v1/posts/"+created.ID, "user-b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodePost(t, resp.Data)
	require.NotNil(t, detail.User)
	assert.Equal(t, "alice@example.com", detail.User.Email)

	w, resp = e.do(t, http.MethodGet, "/api/v1/posts", "user-b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeItems(t, resp.Data), 1)
}

func TestCreatePostValidation(t *testing.T) {
	e := setup(t)

	w, resp := e.do(t, http.MethodPost, "/api/v1/posts", "user-a", gin.H{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40020, resp.Code)

	w, resp = e.do(t, http.MethodPost, "/api/v1/posts", "user-a", gin.H{"content": "<script>alert(1)</script>  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40021, resp.Code)
}

func TestCreatePostUploadFailure(t *testing.T) {
	e := setup(t)

	w, resp := e.do(t, http.MethodPost, "/api/v1/posts", "user-a", gin.H{"content": "pic", "image": "not base64 at all"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50020, resp.Code)
	assert.Equal(t, "failed to create post", resp.Message)

	var count int64
	require.NoError(t, e.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeletePost(t *testing.T) {
	e := setup(t)
	_, resp := e.do(t, http.MethodPost, "/api/v1/posts", "user-a", gin.H{"content": "mine"})
	post := decodePost(t, resp.Data)

	w, resp := e.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, "user-b", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, resp.Code)

	w, _ = e.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, "user-a", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = e.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, "user-a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40403, resp.Code)

	w, _ = e.do(t, http.MethodGet, "/api/v1/posts/"+post.ID, "user-a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.svc.Wait(ctx))
}

func TestMissingPostRoutes(t *testing.T) {
	e := setup(t)

	w, resp := e.do(t, http.MethodPost, "/api/v1/posts/missing/comments", "user-b", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40402, resp.Code)

	w, resp = e.do(t, http.MethodPost, "/api/v1/posts/missing/like", "user-b", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40404, resp.Code)
}

func TestNetworkFeed(t *testing.T) {
	e := setup(t)
	require.NoError(t, e.db.Create(&models.User{ID: "user-c", Username: "carol", Name: "Carol"}).Error)
	require.NoError(t, e.db.Create(&models.UserConnection{UserID: "user-a", ConnectionID: "user-b"}).Error)

	_, err := e.svc.CreatePost(context.Background(), "user-b", "from bob", "")
	require.NoError(t, err)
	_, err = e.svc.CreatePost(context.Background(), "user-c", "from carol", "")
	require.NoError(t, err)

	w, resp := e.do(t, http.MethodGet, "/api/v1/posts/network", "user-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeItems(t, resp.Data)
	require.Len(t, items, 1)
	assert.Equal(t, "from bob", items[0].Content)

	w, resp = e.do(t, http.MethodGet, "/api/v1/posts/explore", "user-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeItems(t, resp.Data), 2)
}
