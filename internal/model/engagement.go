package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is one user's score for one resource; (user, resource) is unique.
type Rating struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ResourceID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_resource_rating,priority:2;index" json:"resource_id"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_resource_rating,priority:1" json:"user_id"`
	Rating     int       `gorm:"not null;check:chk_rating_range,rating >= 1 AND rating <= 5" json:"rating"`
	Review     *string   `gorm:"type:text" json:"review"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	UserName string `gorm:"->;-:migration" json:"user_name,omitempty"`
}

func (Rating) TableName() string {
	return "ratings"
}

func (r *Rating) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Favorite is a user's bookmark of a resource; (user, resource) is unique.
type Favorite struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_resource_favorite,priority:1" json:"user_id"`
	ResourceID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_resource_favorite,priority:2;index" json:"resource_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

func (f *Favorite) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// DownloadHistory is an append-only log entry; UserID is nil for anonymous downloads.
type DownloadHistory struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ResourceID   string    `gorm:"type:varchar(36);not null;index" json:"resource_id"`
	UserID       *string   `gorm:"type:varchar(36);index" json:"user_id"`
	DownloadedAt time.Time `gorm:"autoCreateTime" json:"downloaded_at"`
}

func (DownloadHistory) TableName() string {
	return "download_history"
}

func (d *DownloadHistory) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
