package service

import (
	"context"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
)

// FavoriteService covers bookmarks.
type FavoriteService interface {
	// Toggle flips the favorite state and returns the new state.
	Toggle(ctx context.Context, user *model.User, resourceID string) (bool, error)
	IsFavorite(ctx context.Context, user *model.User, resourceID string) (bool, error)
	ListMine(ctx context.Context, user *model.User) ([]model.Resource, error)
}

type favoriteService struct {
	repos *repository.Repositories
}

// NewFavoriteService creates a FavoriteService.
func NewFavoriteService(repos *repository.Repositories) FavoriteService {
	return &favoriteService{repos: repos}
}

// Toggle adds or removes the caller's favorite. The resource row is locked
// first so concurrent toggles by the same user apply one after the other.
func (s *favoriteService) Toggle(ctx context.Context, user *model.User, resourceID string) (bool, error) {
	var favorited bool
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		res, err := tx.Resources.FindByIDForUpdate(ctx, resourceID)
		if err != nil {
			return notFound(err, ErrResourceNotFound)
		}
		removed, err := tx.Favorites.Remove(ctx, user.ID, resourceID)
		if err != nil {
			return err
		}
		if removed > 0 {
			favorited = false
			return nil
		}

		if res.Status != model.StatusApproved {
			return ErrFavoriteNotAllowed
		}
		if err := tx.Favorites.Add(ctx, user.ID, resourceID); err != nil {
			return err
		}
		favorited = true
		return nil
	})
	return favorited, err
}

func (s *favoriteService) IsFavorite(ctx context.Context, user *model.User, resourceID string) (bool, error) {
	return s.repos.Favorites.Exists(ctx, user.ID, resourceID)
}

func (s *favoriteService) ListMine(ctx context.Context, user *model.User) ([]model.Resource, error) {
	return s.repos.Favorites.ListResources(ctx, user.ID)
}
