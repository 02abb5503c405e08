package repository

import (
	"context"

	"gorm.io/gorm"

	"resource-portal-go/internal/model"
)

// DownloadRepository appends to and prunes the download log.
type DownloadRepository interface {
	Create(ctx context.Context, entry *model.DownloadHistory) error
	CountByResource(ctx context.Context, resourceID string) (int64, error)
	DeleteByResource(ctx context.Context, resourceID string) error
	// ClearUser keeps the user's entries but makes them anonymous.
	ClearUser(ctx context.Context, userID string) error
}

type downloadRepository struct {
	db *gorm.DB
}

// NewDownloadRepository creates a DownloadRepository backed by db.
func NewDownloadRepository(db *gorm.DB) DownloadRepository {
	return &downloadRepository{db: db}
}

// Create appends one download record.
func (r *downloadRepository) Create(ctx context.Context, entry *model.DownloadHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *downloadRepository) CountByResource(ctx context.Context, resourceID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.DownloadHistory{}).Where("resource_id = ?", resourceID).Count(&n).Error
	return n, err
}

func (r *downloadRepository) DeleteByResource(ctx context.Context, resourceID string) error {
	return r.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&model.DownloadHistory{}).Error
}

func (r *downloadRepository) ClearUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&model.DownloadHistory{}).Where("user_id = ?", userID).
		UpdateColumn("user_id", nil).Error
}
