package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resource-portal-go/internal/model"
)

// TagRepository persists the tag catalog and resource/tag links.
type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	FindAll(ctx context.Context) ([]model.Tag, error)
	FindByID(ctx context.Context, id string) (*model.Tag, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Tag, error)
	FindByNameOrSlug(ctx context.Context, name, slug string) (*model.Tag, error)
	Delete(ctx context.Context, id string) (int64, error)
	// ReplaceResourceTags sets the resource's tags to exactly tagIDs.
	ReplaceResourceTags(ctx context.Context, resourceID string, tagIDs []string) error
	DeleteResourceLinks(ctx context.Context, resourceID string) error
	DeleteTagLinks(ctx context.Context, tagID string) error
	Count(ctx context.Context) (int64, error)
	// EnsureExists inserts tags whose slug is not present yet.
	EnsureExists(ctx context.Context, tags []model.Tag) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a TagRepository backed by db.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// FindAll returns the catalog ordered by name.
func (r *tagRepository) FindAll(ctx context.Context) ([]model.Tag, error) {
	tags := []model.Tag{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *tagRepository) FindByID(ctx context.Context, id string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Tag, error) {
	var tags []model.Tag
	if len(ids) == 0 {
		return tags, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}

// FindByNameOrSlug finds a tag that would clash with name or slug.
func (r *tagRepository) FindByNameOrSlug(ctx context.Context, name, slug string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).Where("name = ? OR slug = ?", name, slug).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Tag{})
	return res.RowsAffected, res.Error
}

// ReplaceResourceTags swaps the resource's links for tagIDs.
func (r *tagRepository) ReplaceResourceTags(ctx context.Context, resourceID string, tagIDs []string) error {
	if err := r.DeleteResourceLinks(ctx, resourceID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]model.ResourceTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		links = append(links, model.ResourceTag{ResourceID: resourceID, TagID: tagID})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func (r *tagRepository) DeleteResourceLinks(ctx context.Context, resourceID string) error {
	return r.db.WithContext(ctx).Where("resource_id = ?", resourceID).Delete(&model.ResourceTag{}).Error
}

func (r *tagRepository) DeleteTagLinks(ctx context.Context, tagID string) error {
	return r.db.WithContext(ctx).Where("tag_id = ?", tagID).Delete(&model.ResourceTag{}).Error
}

func (r *tagRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Tag{}).Count(&n).Error
	return n, err
}

// EnsureExists inserts the tags whose names are missing.
func (r *tagRepository) EnsureExists(ctx context.Context, tags []model.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags).Error
}

// tagsByResource loads the tags of each resource id, ordered by tag name.
func tagsByResource(ctx context.Context, db *gorm.DB, resourceIDs []string) (map[string][]model.Tag, error) {
	var rows []struct {
		model.Tag
		ResourceID string
	}
	err := db.WithContext(ctx).
		Table("resource_tags").
		Select("tags.*, resource_tags.resource_id").
		Joins("JOIN tags ON tags.id = resource_tags.tag_id").
		Where("resource_tags.resource_id IN ?", resourceIDs).
		Order("tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]model.Tag, len(resourceIDs))
	for _, row := range rows {
		out[row.ResourceID] = append(out[row.ResourceID], row.Tag)
	}
	return out, nil
}
