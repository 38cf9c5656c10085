package utils

import (
	"context"
	"time"

	"github.com/cppla/postfeed/repositories"
)

const (
	maxAssetDeleteAttempts = 20
	assetRetryBase         = time.Minute
	assetRetryCap          = 6 * time.Hour
	assetCleanupBatch      = 100
)

// AssetDeleter removes a stored asset by its public reference.
type AssetDeleter interface {
	Delete(ctx context.Context, ref string) error
}

// StartAssetCleaner launches a background goroutine that periodically retries
// asset deletions that failed during post deletion. It stops when ctx is done.
func StartAssetCleaner(ctx context.Context, queue repositories.AssetDeletionRepository, store AssetDeleter, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := RunAssetCleanup(ctx, queue, store, time.Now()); err != nil {
					Sugar.Warnw("asset cleaner pass failed", "err", err)
				} else if n > 0 {
					Sugar.Infow("asset cleaner removed assets", "count", n)
				}
			}
		}
	}()
}

// RunAssetCleanup makes one pass over due entries and returns how many assets
// were removed.
func RunAssetCleanup(ctx context.Context, queue repositories.AssetDeletionRepository, store AssetDeleter, now time.Time) (int, error) {
	items, err := queue.Due(ctx, now, assetCleanupBatch)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		derr := store.Delete(ctx, it.Ref)
		if derr == nil {
			removed++
			if err := queue.Done(ctx, it.ID); err != nil {
				Sugar.Warnw("asset cleaner could not drop entry", "id", it.ID, "err", err)
			}
			continue
		}
		if it.Attempts+1 >= maxAssetDeleteAttempts {
			Sugar.Errorw("asset deletion abandoned", "ref", it.Ref, "attempts", it.Attempts+1, "err", derr)
			_ = queue.Done(ctx, it.ID)
			continue
		}
		if err := queue.Reschedule(ctx, it.ID, now.Add(assetBackoff(it.Attempts)), derr); err != nil {
			Sugar.Warnw("asset cleaner could not reschedule", "id", it.ID, "err", err)
		}
	}
	return removed, nil
}

func assetBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		return assetRetryCap
	}
	d := assetRetryBase << uint(attempts)
	if d > assetRetryCap {
		return assetRetryCap
	}
	return d
}
