package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/postfeed/models"
)

type queueStub struct {
	items       []models.PendingAssetDeletion
	done        []string
	rescheduled map[string]time.Time
}

func (q *queueStub) Enqueue(context.Context, string, error) error { return nil }

func (q *queueStub) Due(context.Context, time.Time, int) ([]models.PendingAssetDeletion, error) {
	return q.items, nil
}

func (q *queueStub) Done(_ context.Context, id string) error {
	q.done = append(q.done, id)
	return nil
}

func (q *queueStub) Reschedule(_ context.Context, id string, retryAt time.Time, _ error) error {
	if q.rescheduled == nil {
		q.rescheduled = map[string]time.Time{}
	}
	q.rescheduled[id] = retryAt
	return nil
}

type deleterStub map[string]error

func (d deleterStub) Delete(_ context.Context, ref string) error { return d[ref] }

func TestRunAssetCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := &queueStub{items: []models.PendingAssetDeletion{
		{ID: "ok", Ref: "/static/uploads/ok.jpg", Attempts: 1},
		{ID: "retry", Ref: "/static/uploads/retry.jpg", Attempts: 2},
		{ID: "give-up", Ref: "/static/uploads/give-up.jpg", Attempts: maxAssetDeleteAttempts - 1},
	}}
	busy := errors.New("busy")
	store := deleterStub{
		"/static/uploads/retry.jpg":   busy,
		"/static/uploads/give-up.jpg": busy,
	}

	removed, err := RunAssetCleanup(context.Background(), q, store, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.ElementsMatch(t, []string{"ok", "give-up"}, q.done)
	require.Contains(t, q.rescheduled, "retry")
	assert.Equal(t, now.Add(4*time.Minute), q.rescheduled["retry"])
}

func TestAssetBackoffIsCapped(t *testing.T) {
	assert.Equal(t, time.Minute, assetBackoff(0))
	assert.Equal(t, 8*time.Minute, assetBackoff(3))
	assert.Equal(t, assetRetryCap, assetBackoff(50))
}
