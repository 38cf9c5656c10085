package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/postfeed/models"
)

func TestGormNotificationWrite(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormNotificationRepository(db)

	n, err := repo.Write(context.Background(), "user-a", models.NotificationComment, "user-b", "post-1")
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", n.ID).Error)
	assert.Equal(t, "user-a", stored.RecipientID)
	assert.Equal(t, models.NotificationComment, stored.Type)
	assert.Equal(t, "user-b", stored.RelatedUserID)
	assert.Equal(t, "post-1", stored.RelatedPostID)
}

func TestGormConnections(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormConnectionRepository(db)
	require.NoError(t, db.Create(&[]models.UserConnection{
		{UserID: "user-a", ConnectionID: "user-b"},
		{UserID: "user-a", ConnectionID: "user-c"},
		{UserID: "user-b", ConnectionID: "user-a"},
	}).Error)

	got, err := repo.ListConnectionIDs(context.Background(), "user-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-b", "user-c"}, got)

	none, err := repo.ListConnectionIDs(context.Background(), "user-z")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormAssetDeletionQueue(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAssetDeletionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, "/static/uploads/a.jpg", errors.New("disk busy")))

	due, err := repo.Due(ctx, time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "/static/uploads/a.jpg", due[0].Ref)
	assert.Equal(t, 1, due[0].Attempts)
	assert.Equal(t, "disk busy", due[0].LastError)

	later := time.Now().Add(time.Hour)
	require.NoError(t, repo.Reschedule(ctx, due[0].ID, later, errors.New("still busy")))
	due, err = repo.Due(ctx, time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.Due(ctx, later.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Attempts)

	require.NoError(t, repo.Done(ctx, due[0].ID))
	due, err = repo.Due(ctx, later.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
