package service

import (
	"context"
	"time"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
)

// NotificationService reads and acknowledges a user's inbox.
type NotificationService interface {
	List(ctx context.Context, user *model.User, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, user *model.User, id string) error
	MarkAllRead(ctx context.Context, user *model.User) (int64, error)
	UnreadCount(ctx context.Context, user *model.User) (int64, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	cache    repository.UnreadCountCache
	limit    int
	cacheTTL time.Duration
}

// NewNotificationService creates a NotificationService. listLimit caps List.
func NewNotificationService(repo repository.NotificationRepository, cache repository.UnreadCountCache, limit int, cacheTTL time.Duration) NotificationService {
	return &notificationService{repo: repo, cache: cache, limit: limit, cacheTTL: cacheTTL}
}

func (s *notificationService) List(ctx context.Context, user *model.User, unreadOnly bool) ([]model.Notification, error) {
	return s.repo.List(ctx, user.ID, unreadOnly, s.limit)
}

// MarkRead marks one notification read and drops the cached unread count.
func (s *notificationService) MarkRead(ctx context.Context, user *model.User, id string) error {
	n, err := s.repo.FindForUser(ctx, id, user.ID)
	if err != nil {
		return notFound(err, ErrNotificationNotFound)
	}
	if n.IsRead {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	invalidateUnread(ctx, s.cache, user.ID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, user *model.User) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	invalidateUnread(ctx, s.cache, user.ID)
	return updated, nil
}

// UnreadCount serves the cached count when present. On a miss it counts in the
// database and caches the result unless an invalidation happened meanwhile.
func (s *notificationService) UnreadCount(ctx context.Context, user *model.User) (int64, error) {
	if n, ok, err := s.cache.Get(ctx, user.ID); err != nil {
		log.Error("[NotificationService] read unread count cache", err)
	} else if ok {
		return n, nil
	}

	cacheable := s.cacheTTL > 0
	gen, err := s.cache.Generation(ctx, user.ID)
	if err != nil {
		log.Error("[NotificationService] read unread count generation", err)
		cacheable = false
	}

	n, err := s.repo.CountUnread(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if cacheable {
		if _, err := s.cache.SetIfGeneration(ctx, user.ID, gen, n, s.cacheTTL); err != nil {
			log.Error("[NotificationService] write unread count cache", err)
		}
	}
	return n, nil
}
