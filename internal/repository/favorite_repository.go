package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resource-portal-go/internal/model"
)

// FavoriteRepository persists bookmarks.
type FavoriteRepository interface {
	// Add is a no-op when the pair already exists.
	Add(ctx context.Context, userID, resourceID string) error
	Remove(ctx context.Context, userID, resourceID string) (int64, error)
	Exists(ctx context.Context, userID, resourceID string) (bool, error)
	// ListResources returns the user's favorited resources, most recently favorited first.
	ListResources(ctx context.Context, userID string) ([]model.Resource, error)
	DeleteByResource(ctx context.Context, resourceID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a FavoriteRepository backed by db.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Add inserts the favorite, ignoring an existing one.
func (r *favoriteRepository) Add(ctx context.Context, userID, resourceID string) error {
	fav := model.Favorite{UserID: userID, ResourceID: resourceID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
}

// Remove deletes the favorite and reports how many rows went away.
func (r *favoriteRepository) Remove(ctx context.Context, userID, resourceID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Delete(&model.Favorite{})
	return res.RowsAffected, res.Error
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, resourceID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Count(&n).Error
	return n > 0, err
}

// ListResources returns the user's favorited resources, newest favorite first.
func (r *favoriteRepository) ListResources(ctx context.Context, userID string) ([]model.Resource, error) {
	list := []model.Resource{}
	err := r.db.WithContext(ctx).Model(&model.Resource{}).
		Select("resources.*, users.full_name AS uploader_name").
		Joins("JOIN favorites ON favorites.resource_id = resources.id").
		Joins("LEFT JOIN users ON users.id = resources.uploaded_by").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	if err := attachTags(ctx, r.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *favoriteRepository) DeleteByResource(ctx context.Context, resourceID string) error {
	return r.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&model.Favorite{}).Error
}

func (r *favoriteRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Favorite{}).Error
}
