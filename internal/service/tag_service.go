package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/log"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// TagService manages the tag catalog.
type TagService interface {
	List(ctx context.Context) ([]model.Tag, error)
	Create(ctx context.Context, name, color string) (*model.Tag, error)
	// Delete removes the tag and its links to resources.
	Delete(ctx context.Context, id string) error
}

type tagService struct {
	repos *repository.Repositories
}

// NewTagService creates a TagService.
func NewTagService(repos *repository.Repositories) TagService {
	return &tagService{repos: repos}
}

func (s *tagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.repos.Tags.FindAll(ctx)
}

// Create adds a tag after checking its name and color.
func (s *tagService) Create(ctx context.Context, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	tagSlug := slug.Make(name)
	if name == "" || tagSlug == "" {
		return nil, ErrTagNameRequired
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = model.DefaultTagColor
	}
	if !hexColor.MatchString(color) {
		return nil, ErrInvalidTagColor
	}

	_, err := s.repos.Tags.FindByNameOrSlug(ctx, name, tagSlug)
	if err == nil {
		return nil, ErrTagExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag := &model.Tag{Name: name, Slug: tagSlug, Color: strings.ToUpper(color)}
	if err := s.repos.Tags.Create(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	log.Infof("[TagService] created tag %s (%s)", tag.Name, tag.Slug)
	return tag, nil
}

func (s *tagService) Delete(ctx context.Context, id string) error {
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tags.DeleteTagLinks(ctx, id); err != nil {
			return err
		}
		n, err := tx.Tags.Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTagNotFound
		}
		return nil
	})
}
