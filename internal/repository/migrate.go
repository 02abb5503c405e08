package repository

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"resource-portal-go/internal/model"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Resource{},
		&model.Tag{},
		&model.ResourceTag{},
		&model.Rating{},
		&model.Favorite{},
		&model.Notification{},
		&model.DownloadHistory{},
	}
}

// TableNames lists the tables Models creates.
func TableNames() []string {
	return []string{"users", "resources", "tags", "resource_tags", "ratings", "favorites", "notifications", "download_history"}
}

// DefaultTags is the catalog every fresh installation starts with.
var DefaultTags = []struct {
	Name  string
	Color string
}{
	{"Computer Science", "#3B82F6"},
	{"Mathematics", "#10B981"},
	{"Physics", "#F59E0B"},
	{"Chemistry", "#EF4444"},
	{"Semester 1", "#8B5CF6"},
	{"Semester 2", "#8B5CF6"},
	{"Semester 3", "#8B5CF6"},
	{"Semester 4", "#8B5CF6"},
	{"Notes", "#06B6D4"},
	{"Assignment", "#EC4899"},
	{"Previous Paper", "#F97316"},
	{"Project", "#84CC16"},
	{"Tutorial", "#6366F1"},
	{"Reference", "#14B8A6"},
}

// Migrate creates or updates the schema and seeds the default tags. It is idempotent.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	tags := make([]model.Tag, 0, len(DefaultTags))
	for _, t := range DefaultTags {
		tags = append(tags, model.Tag{Name: t.Name, Slug: slug.Make(t.Name), Color: t.Color})
	}
	if err := NewTagRepository(db).EnsureExists(ctx, tags); err != nil {
		return fmt.Errorf("seed default tags: %w", err)
	}
	return nil
}
