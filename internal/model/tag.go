package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultTagColor = "#3B82F6"

// Tag is a category label from the shared catalog.
type Tag struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#3B82F6'" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Color == "" {
		t.Color = DefaultTagColor
	}
	return nil
}

// ResourceTag links a resource to a tag. The pair is unique.
type ResourceTag struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ResourceID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_resource_tag" json:"resource_id"`
	TagID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_resource_tag;index" json:"tag_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ResourceTag) TableName() string {
	return "resource_tags"
}

func (rt *ResourceTag) BeforeCreate(*gorm.DB) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	return nil
}
