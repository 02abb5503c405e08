package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resource-portal-go/internal/model"
)

// ResourceFilter narrows List. Zero fields do not filter.
type ResourceFilter struct {
	Status     model.ResourceStatus
	UploadedBy string
	TagSlug    string
}

// ResourceRepository persists resources and their counters.
type ResourceRepository interface {
	Create(ctx context.Context, resource *model.Resource) error
	// FindByID loads the resource with its uploader name and tags.
	FindByID(ctx context.Context, id string) (*model.Resource, error)
	// FindByIDForUpdate loads the bare row under a row lock; use inside a transaction.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Resource, error)
	// List returns matching resources newest first.
	List(ctx context.Context, filter ResourceFilter) ([]model.Resource, error)
	// Search matches query case-insensitively against title and description of approved resources.
	Search(ctx context.Context, query string, fileType model.FileType) ([]model.Resource, error)
	FindByUploader(ctx context.Context, userID string) ([]model.Resource, error)
	// FindOrphans returns resources whose uploader no longer exists.
	FindOrphans(ctx context.Context) ([]model.Resource, error)
	StorageKeys(ctx context.Context) ([]string, error)
	IsStorageKeyReferenced(ctx context.Context, key string) (bool, error)
	UpdateDetails(ctx context.Context, id, title, description string) error
	UpdateReview(ctx context.Context, id string, status model.ResourceStatus, reviewerID string, at time.Time) error
	UpdateRatingAggregate(ctx context.Context, id string, average float64, count int64) error
	IncrementViewCount(ctx context.Context, id string) error
	IncrementDownloadCount(ctx context.Context, id string) error
	ClearReviewer(ctx context.Context, reviewerID string) error
	Delete(ctx context.Context, id string) (int64, error)
	CountByStatus(ctx context.Context) (map[model.ResourceStatus]int64, error)
}

type resourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository creates a ResourceRepository backed by db.
func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

// withUploader selects resources joined to the uploader's name.
func (r *resourceRepository) withUploader(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Select("resources.*, users.full_name AS uploader_name").
		Joins("LEFT JOIN users ON users.id = resources.uploaded_by")
}

func (r *resourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

// FindByID loads a resource with its uploader name and tags.
func (r *resourceRepository) FindByID(ctx context.Context, id string) (*model.Resource, error) {
	var res model.Resource
	if err := r.withUploader(ctx).Where("resources.id = ?", id).Take(&res).Error; err != nil {
		return nil, err
	}
	list := []model.Resource{res}
	if err := attachTags(ctx, r.db, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// FindByIDForUpdate loads a resource and locks its row for the rest of the transaction.
func (r *resourceRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Resource, error) {
	var res model.Resource
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns resources matching filter, newest first.
func (r *resourceRepository) List(ctx context.Context, filter ResourceFilter) ([]model.Resource, error) {
	q := r.withUploader(ctx)
	if filter.Status != "" {
		q = q.Where("resources.status = ?", filter.Status)
	}
	if filter.UploadedBy != "" {
		q = q.Where("resources.uploaded_by = ?", filter.UploadedBy)
	}
	if filter.TagSlug != "" {
		tagged := r.db.Table("resource_tags").
			Select("resource_tags.resource_id").
			Joins("JOIN tags ON tags.id = resource_tags.tag_id").
			Where("tags.slug = ?", filter.TagSlug)
		q = q.Where("resources.id IN (?)", tagged)
	}
	return r.findWithTags(ctx, q.Order("resources.uploaded_at DESC"))
}

// likeEscaper makes user input match literally inside a LIKE pattern using '!' as the escape character.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches approved resources by title or description.
func (r *resourceRepository) Search(ctx context.Context, query string, fileType model.FileType) ([]model.Resource, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	q := r.withUploader(ctx).
		Where("resources.status = ?", model.StatusApproved).
		Where("(LOWER(resources.title) LIKE ? ESCAPE '!' OR LOWER(resources.description) LIKE ? ESCAPE '!')", pattern, pattern)
	if fileType != "" {
		q = q.Where("resources.file_type = ?", fileType)
	}
	return r.findWithTags(ctx, q.Order("resources.uploaded_at DESC"))
}

func (r *resourceRepository) FindByUploader(ctx context.Context, userID string) ([]model.Resource, error) {
	var list []model.Resource
	err := r.db.WithContext(ctx).Where("uploaded_by = ?", userID).Find(&list).Error
	return list, err
}

// FindOrphans returns resources whose uploader no longer exists.
func (r *resourceRepository) FindOrphans(ctx context.Context) ([]model.Resource, error) {
	var list []model.Resource
	err := r.db.WithContext(ctx).
		Select("resources.*").
		Joins("LEFT JOIN users ON users.id = resources.uploaded_by").
		Where("users.id IS NULL").
		Find(&list).Error
	return list, err
}

// StorageKeys returns the object key of every resource.
func (r *resourceRepository) StorageKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&model.Resource{}).Pluck("public_id", &keys).Error
	return keys, err
}

func (r *resourceRepository) IsStorageKeyReferenced(ctx context.Context, key string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Resource{}).Where("public_id = ?", key).Count(&n).Error
	return n > 0, err
}

func (r *resourceRepository) UpdateDetails(ctx context.Context, id, title, description string) error {
	return r.db.WithContext(ctx).Model(&model.Resource{}).Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "description": description}).Error
}

func (r *resourceRepository) UpdateReview(ctx context.Context, id string, status model.ResourceStatus, reviewerID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Resource{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		}).Error
}

// UpdateRatingAggregate stores the recomputed rating average and count.
func (r *resourceRepository) UpdateRatingAggregate(ctx context.Context, id string, average float64, count int64) error {
	return r.db.WithContext(ctx).Model(&model.Resource{}).Where("id = ?", id).
		Updates(map[string]interface{}{"average_rating": average, "rating_count": count}).Error
}

func (r *resourceRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "view_count")
}

func (r *resourceRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "download_count")
}

// increment issues a single "col = col + 1" update so concurrent hits are never lost.
func (r *resourceRepository) increment(ctx context.Context, id, column string) error {
	return r.db.WithContext(ctx).Model(&model.Resource{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
}

// ClearReviewer nulls reviewed_by on every resource the reviewer touched.
func (r *resourceRepository) ClearReviewer(ctx context.Context, reviewerID string) error {
	return r.db.WithContext(ctx).Model(&model.Resource{}).Where("reviewed_by = ?", reviewerID).
		UpdateColumn("reviewed_by", nil).Error
}

func (r *resourceRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Resource{})
	return res.RowsAffected, res.Error
}

// CountByStatus counts resources per review status.
func (r *resourceRepository) CountByStatus(ctx context.Context) (map[model.ResourceStatus]int64, error) {
	var rows []struct {
		Status model.ResourceStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Resource{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := map[model.ResourceStatus]int64{
		model.StatusPending:  0,
		model.StatusApproved: 0,
		model.StatusRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *resourceRepository) findWithTags(ctx context.Context, q *gorm.DB) ([]model.Resource, error) {
	list := []model.Resource{}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	if err := attachTags(ctx, r.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

// attachTags fills Tags on every resource with one query.
func attachTags(ctx context.Context, db *gorm.DB, list []model.Resource) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	byResource, err := tagsByResource(ctx, db, ids)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Tags = byResource[list[i].ID]
		if list[i].Tags == nil {
			list[i].Tags = []model.Tag{}
		}
	}
	return nil
}
