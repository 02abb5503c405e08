// Package pipeline runs background work fed by the Kafka cleanup topic.
package pipeline

import (
	"context"

	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/tasks"
)

// Janitor deletes stored objects that no resource owns any more.
type Janitor struct {
	store     storage.ObjectStore
	resources repository.ResourceRepository
}

func NewJanitor(store storage.ObjectStore, resources repository.ResourceRepository) *Janitor {
	return &Janitor{store: store, resources: resources}
}

// Process deletes task.ObjectKey unless a resource row still references it.
func (j *Janitor) Process(ctx context.Context, task tasks.StorageCleanupTask) error {
	referenced, err := j.resources.IsStorageKeyReferenced(ctx, task.ObjectKey)
	if err != nil {
		return err
	}
	if referenced {
		log.Warnw("[Janitor] object still referenced, skipping", "object_key", task.ObjectKey, "reason", task.Reason)
		return nil
	}

	if err := j.store.Remove(ctx, task.ObjectKey); err != nil {
		return err
	}
	log.Infow("[Janitor] object removed", "object_key", task.ObjectKey, "resource_id", task.ResourceID, "reason", task.Reason)
	return nil
}
