package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/postfeed/models"
	"github.com/cppla/postfeed/repositories"
)

type memPosts struct {
	mu        sync.Mutex
	users     map[string]models.User
	posts     map[string]*models.Post
	createErr error
	clock     time.Time
}

func newMemPosts(users ...models.User) *memPosts {
	m := &memPosts{
		users: map[string]models.User{},
		posts: map[string]*models.Post{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memPosts) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memPosts) populate(p *models.Post) models.Post {
	out := *p
	out.Likes = append([]string{}, p.Likes...)
	out.Comments = append([]models.Comment{}, p.Comments...)
	if u, ok := m.users[p.UserID]; ok {
		u := u
		out.User = &u
	}
	for i := range out.Comments {
		if u, ok := m.users[out.Comments[i].UserID]; ok {
			u := u
			out.Comments[i].User = &u
		}
	}
	return out
}

func (m *memPosts) ListAll(_ context.Context, filter repositories.PostFilter) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range filter.AuthorIDs {
		allowed[id] = true
	}
	out := []models.Post{}
	for _, p := range m.posts {
		if filter.AuthorIDs != nil && !allowed[p.UserID] {
			continue
		}
		if _, ok := m.users[p.UserID]; !ok {
			continue
		}
		out = append(out, m.populate(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPosts) GetByID(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := m.populate(p)
	return &out, nil
}

func (m *memPosts) Create(ctx context.Context, authorID, content, image string, sentiment *models.Sentiment) (*models.Post, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if content == "" {
		return nil, repositories.NewValidationError("content", "content is required")
	}
	m.mu.Lock()
	p := &models.Post{ID: uuid.NewString(), UserID: authorID, Content: content, Image: image, Sentiment: sentiment, CreatedAt: m.tick()}
	m.posts[p.ID] = p
	m.mu.Unlock()
	return m.GetByID(ctx, p.ID)
}

func (m *memPosts) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) AppendComment(ctx context.Context, postID, userID, content string) (*models.Post, error) {
	m.mu.Lock()
	p, ok := m.posts[postID]
	if !ok {
		m.mu.Unlock()
		return nil, repositories.ErrNotFound
	}
	p.Comments = append(p.Comments, models.Comment{UserID: userID, Content: content, CreatedAt: m.tick()})
	m.mu.Unlock()
	return m.GetByID(ctx, postID)
}

func (m *memPosts) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	m.mu.Lock()
	p, ok := m.posts[postID]
	if !ok {
		m.mu.Unlock()
		return nil, false, repositories.ErrNotFound
	}
	liked := true
	kept := p.Likes[:0]
	for _, id := range p.Likes {
		if id == userID {
			liked = false
			continue
		}
		kept = append(kept, id)
	}
	p.Likes = kept
	if liked {
		p.Likes = append(p.Likes, userID)
	}
	m.mu.Unlock()
	post, err := m.GetByID(ctx, postID)
	return post, liked, err
}

type memNotifications struct {
	mu    sync.Mutex
	items []models.Notification
	err   error
}

func (n *memNotifications) Write(_ context.Context, recipientID string, typ models.NotificationType, relatedUserID, relatedPostID string) (*models.Notification, error) {
	if n.err != nil {
		return nil, n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	note := models.Notification{ID: uuid.NewString(), RecipientID: recipientID, Type: typ, RelatedUserID: relatedUserID, RelatedPostID: relatedPostID}
	n.items = append(n.items, note)
	return &note, nil
}

func (n *memNotifications) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification{}, n.items...)
}

type memConnections map[string][]string

func (c memConnections) ListConnectionIDs(_ context.Context, userID string) ([]string, error) {
	return c[userID], nil
}

type memPending struct {
	mu   sync.Mutex
	refs []string
}

func (p *memPending) Enqueue(_ context.Context, ref string, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs = append(p.refs, ref)
	return nil
}

func (p *memPending) Due(context.Context, time.Time, int) ([]models.PendingAssetDeletion, error) {
	return nil, nil
}
func (p *memPending) Done(context.Context, string) error { return nil }
func (p *memPending) Reschedule(context.Context, string, time.Time, error) error {
	return nil
}

type fakeAssets struct {
	mu        sync.Mutex
	uploadErr error
	deleteErr error
	uploads   []string
	deleted   []string
}

func (a *fakeAssets) Upload(_ context.Context, payload string) (string, error) {
	if a.uploadErr != nil {
		return "", a.uploadErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ref := "/static/uploads/" + uuid.NewString() + ".jpg"
	a.uploads = append(a.uploads, ref)
	return ref, nil
}

func (a *fakeAssets) Delete(_ context.Context, ref string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, ref)
	return a.deleteErr
}

func (a *fakeAssets) deletedRefs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.deleted...)
}

type fakeSentiment struct {
	mu     sync.Mutex
	result *models.Sentiment
	texts  []string
}

func (f *fakeSentiment) Analyze(_ context.Context, text string) *models.Sentiment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.result
}

type sentEmail struct {
	to, toName, fromName, url, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
}

func (f *fakeMailer) SendCommentEmail(toEmail, toName, fromName, postURL, commentBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{toEmail, toName, fromName, postURL, commentBody})
	return f.err
}

func (f *fakeMailer) all() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail{}, f.sent...)
}

var errBoom = errors.New("boom")
