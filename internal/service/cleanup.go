package service

import (
	"context"
	"math"

	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/tasks"
)

// CleanupQueue receives stored objects that must be deleted asynchronously.
type CleanupQueue interface {
	EnqueueCleanup(ctx context.Context, task tasks.StorageCleanupTask) error
}

// deleteResourceRows removes a resource and everything that hangs off it.
// Notifications survive with their resource reference cleared.
func deleteResourceRows(ctx context.Context, tx *repository.Repositories, resourceID string) error {
	if err := tx.Tags.DeleteResourceLinks(ctx, resourceID); err != nil {
		return err
	}
	if err := tx.Ratings.DeleteByResource(ctx, resourceID); err != nil {
		return err
	}
	if err := tx.Favorites.DeleteByResource(ctx, resourceID); err != nil {
		return err
	}
	if err := tx.Downloads.DeleteByResource(ctx, resourceID); err != nil {
		return err
	}
	if err := tx.Notifications.DetachResource(ctx, resourceID); err != nil {
		return err
	}
	_, err := tx.Resources.Delete(ctx, resourceID)
	return err
}

// refreshRatingAggregate rewrites average_rating and rating_count from the ratings table.
func refreshRatingAggregate(ctx context.Context, tx *repository.Repositories, resourceID string) error {
	agg, err := tx.Ratings.Aggregate(ctx, resourceID)
	if err != nil {
		return err
	}
	return tx.Resources.UpdateRatingAggregate(ctx, resourceID, roundRating(agg.Average), agg.Count)
}

func roundRating(v float64) float64 {
	return math.Round(v*100) / 100
}

// removeObject deletes a stored object and hands it to the cleanup queue when
// the store refuses. It never fails the caller.
func removeObject(ctx context.Context, store storage.ObjectStore, queue CleanupQueue, key, resourceID string) {
	if key == "" {
		return
	}
	err := store.Remove(ctx, key)
	if err == nil {
		return
	}
	log.Warnw("storage delete failed, queueing cleanup", "object_key", key, "resource_id", resourceID, "error", err)
	enqueueCleanup(ctx, queue, tasks.StorageCleanupTask{
		ObjectKey:  key,
		ResourceID: resourceID,
		Reason:     tasks.ReasonDeleteFailed,
	})
}

func enqueueCleanup(ctx context.Context, queue CleanupQueue, task tasks.StorageCleanupTask) {
	if err := queue.EnqueueCleanup(ctx, task); err != nil {
		log.Errorf("enqueue cleanup of %s (%s): %v", task.ObjectKey, task.Reason, err)
	}
}

func invalidateUnread(ctx context.Context, cache repository.UnreadCountCache, userIDs ...string) {
	if err := cache.Invalidate(ctx, userIDs...); err != nil {
		log.Error("invalidate unread count cache", err)
	}
}
