package repository

import (
	"context"

	"gorm.io/gorm"

	"resource-portal-go/internal/model"
)

// NotificationRepository persists the per-user inbox.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// List returns the newest notifications first, at most limit rows.
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	FindForUser(ctx context.Context, id, userID string) (*model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	DetachResource(ctx context.Context, resourceID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a NotificationRepository backed by db.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// List returns the user's newest notifications up to limit.
func (r *notificationRepository) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	list := []model.Notification{}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

// FindForUser loads a notification only if it belongs to userID.
func (r *notificationRepository) FindForUser(ctx context.Context, id, userID string) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("is_read", true).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread counts the user's unread notifications.
func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// DetachResource keeps notifications about a deleted resource but drops the reference.
func (r *notificationRepository) DetachResource(ctx context.Context, resourceID string) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).Where("resource_id = ?", resourceID).
		UpdateColumn("resource_id", nil).Error
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Notification{}).Error
}
