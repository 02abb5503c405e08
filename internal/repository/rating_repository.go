package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resource-portal-go/internal/model"
)

// RatingAggregate is AVG(rating) and COUNT(*) over one resource's ratings.
type RatingAggregate struct {
	Average float64
	Count   int64
}

// RatingRepository persists per-user ratings.
type RatingRepository interface {
	// Upsert inserts the rating or, when (user, resource) exists, overwrites rating and review.
	Upsert(ctx context.Context, rating *model.Rating) error
	Find(ctx context.Context, userID, resourceID string) (*model.Rating, error)
	Aggregate(ctx context.Context, resourceID string) (RatingAggregate, error)
	// ListByResource returns ratings newest first with the rater's name.
	ListByResource(ctx context.Context, resourceID string) ([]model.Rating, error)
	ResourceIDsRatedBy(ctx context.Context, userID string) ([]string, error)
	DeleteByResource(ctx context.Context, resourceID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a RatingRepository backed by db.
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert inserts the rating or overwrites the user's previous one.
func (r *ratingRepository) Upsert(ctx context.Context, rating *model.Rating) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "review", "updated_at"}),
	}).Create(rating).Error
}

func (r *ratingRepository) Find(ctx context.Context, userID, resourceID string) (*model.Rating, error) {
	var rating model.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// Aggregate computes the average and count over a resource's ratings.
func (r *ratingRepository) Aggregate(ctx context.Context, resourceID string) (RatingAggregate, error) {
	var agg RatingAggregate
	err := r.db.WithContext(ctx).Model(&model.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("resource_id = ?", resourceID).
		Scan(&agg).Error
	return agg, err
}

// ListByResource returns a resource's ratings with rater names, newest first.
func (r *ratingRepository) ListByResource(ctx context.Context, resourceID string) ([]model.Rating, error) {
	ratings := []model.Rating{}
	err := r.db.WithContext(ctx).Model(&model.Rating{}).
		Select("ratings.*, users.full_name AS user_name").
		Joins("LEFT JOIN users ON users.id = ratings.user_id").
		Where("ratings.resource_id = ?", resourceID).
		Order("ratings.created_at DESC").
		Find(&ratings).Error
	return ratings, err
}

func (r *ratingRepository) ResourceIDsRatedBy(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Rating{}).Where("user_id = ?", userID).Pluck("resource_id", &ids).Error
	return ids, err
}

func (r *ratingRepository) DeleteByResource(ctx context.Context, resourceID string) error {
	return r.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&model.Rating{}).Error
}

func (r *ratingRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Rating{}).Error
}
