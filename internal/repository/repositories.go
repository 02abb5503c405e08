package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every SQL repository over one connection or transaction.
type Repositories struct {
	db *gorm.DB

	Users         UserRepository
	Resources     ResourceRepository
	Tags          TagRepository
	Ratings       RatingRepository
	Favorites     FavoriteRepository
	Notifications NotificationRepository
	Downloads     DownloadRepository
}

// New builds the bundle over db.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		Users:         NewUserRepository(db),
		Resources:     NewResourceRepository(db),
		Tags:          NewTagRepository(db),
		Ratings:       NewRatingRepository(db),
		Favorites:     NewFavoriteRepository(db),
		Notifications: NewNotificationRepository(db),
		Downloads:     NewDownloadRepository(db),
	}
}

// Transaction runs fn with a bundle bound to one database transaction.
// Everything fn does commits together or not at all; fn must only use tx.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(New(db))
	})
}

// Ping checks the database connection.
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CountRows counts the rows of table.
func (r *Repositories) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table(table).Count(&n).Error
	return n, err
}
