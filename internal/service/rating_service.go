package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
)

const maxReviewLength = 500

// RatingService covers 1-5 star ratings and reviews.
type RatingService interface {
	// Rate creates or replaces the caller's rating and refreshes the resource aggregate.
	Rate(ctx context.Context, user *model.User, resourceID string, rating int, review string) (*model.Rating, error)
	List(ctx context.Context, user *model.User, resourceID string) ([]model.Rating, error)
	// Mine returns the caller's rating, or nil when there is none.
	Mine(ctx context.Context, user *model.User, resourceID string) (*model.Rating, error)
}

type ratingService struct {
	repos  *repository.Repositories
	unread repository.UnreadCountCache
}

// NewRatingService creates a RatingService.
func NewRatingService(repos *repository.Repositories, unread repository.UnreadCountCache) RatingService {
	return &ratingService{repos: repos, unread: unread}
}

// Rate records or updates the caller's score and refreshes the resource aggregate.
func (s *ratingService) Rate(ctx context.Context, user *model.User, resourceID string, rating int, review string) (*model.Rating, error) {
	var text *string
	if review = strings.TrimSpace(review); review != "" {
		if utf8.RuneCountInString(review) > maxReviewLength {
			return nil, ErrReviewTooLong
		}
		text = &review
	}

	var uploader string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		// the row lock serializes raters of the same resource while the aggregate is rebuilt
		res, err := tx.Resources.FindByIDForUpdate(ctx, resourceID)
		if err != nil {
			return notFound(err, ErrResourceNotFound)
		}
		if res.Status != model.StatusApproved {
			return ErrNotApproved
		}
		if res.UploadedBy == user.ID {
			return ErrSelfRatingForbidden
		}
		if rating < model.MinRating || rating > model.MaxRating {
			return ErrInvalidRating
		}

		if err := tx.Ratings.Upsert(ctx, &model.Rating{
			ResourceID: resourceID,
			UserID:     user.ID,
			Rating:     rating,
			Review:     text,
		}); err != nil {
			return err
		}
		if err := refreshRatingAggregate(ctx, tx, resourceID); err != nil {
			return err
		}
		if err := tx.Notifications.Create(ctx, ratingNotification(res, user, rating, text)); err != nil {
			return err
		}
		uploader = res.UploadedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateUnread(ctx, s.unread, uploader)
	log.Infow("[RatingService] resource rated", "resource_id", resourceID, "user_id", user.ID, "rating", rating)
	return s.repos.Ratings.Find(ctx, user.ID, resourceID)
}

func ratingNotification(res *model.Resource, rater *model.User, rating int, review *string) *model.Notification {
	resourceID := res.ID
	n := &model.Notification{
		UserID:     res.UploadedBy,
		Type:       model.NotificationRating,
		ResourceID: &resourceID,
	}
	if review != nil {
		n.Title = "New Review on your resource"
		n.Message = fmt.Sprintf("%s reviewed %q (%d/5): %s", rater.FullName, res.Title, rating, *review)
	} else {
		n.Title = "New Rating on your resource"
		n.Message = fmt.Sprintf("%s rated %q %d/5 stars.", rater.FullName, res.Title, rating)
	}
	return n
}

func (s *ratingService) List(ctx context.Context, user *model.User, resourceID string) ([]model.Rating, error) {
	res, err := s.repos.Resources.FindByID(ctx, resourceID)
	if err != nil {
		return nil, notFound(err, ErrResourceNotFound)
	}
	if !canSee(user, res) {
		return nil, ErrResourceNotFound
	}
	return s.repos.Ratings.ListByResource(ctx, resourceID)
}

func (s *ratingService) Mine(ctx context.Context, user *model.User, resourceID string) (*model.Rating, error) {
	rating, err := s.repos.Ratings.Find(ctx, user.ID, resourceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return rating, err
}
