package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResourceStatus is the review state of a resource.
type ResourceStatus string

const (
	StatusPending  ResourceStatus = "pending"
	StatusApproved ResourceStatus = "approved"
	StatusRejected ResourceStatus = "rejected"
)

// Valid reports whether s is one of the three review states.
func (s ResourceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// FileType is the coarse kind of an uploaded file.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
	FileTypeDoc   FileType = "doc"
	FileTypePPT   FileType = "ppt"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	switch t {
	case FileTypePDF, FileTypeImage, FileTypeDoc, FileTypePPT:
		return true
	}
	return false
}

// Resource maps to the resources table. AverageRating and RatingCount are
// derived from the ratings table and rewritten after every rating.
type Resource struct {
	ID          string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string   `gorm:"type:varchar(255);not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	FileURL     string   `gorm:"type:varchar(500);not null" json:"file_url"`
	StorageKey  string   `gorm:"column:public_id;type:varchar(255);not null;index" json:"public_id"`
	FileType    FileType `gorm:"type:varchar(20);not null;index" json:"file_type"`
	FileSize    int64    `gorm:"not null" json:"file_size"`
	MimeType    string   `gorm:"type:varchar(100)" json:"mime_type"`

	UploadedBy string         `gorm:"type:varchar(36);not null;index" json:"uploaded_by"`
	Status     ResourceStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	UploadedAt time.Time      `gorm:"autoCreateTime;index" json:"uploaded_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	ReviewedAt *time.Time     `json:"reviewed_at"`
	ReviewedBy *string        `gorm:"type:varchar(36);index" json:"reviewed_by"`

	ViewCount     int64   `gorm:"not null;default:0" json:"view_count"`
	DownloadCount int64   `gorm:"not null;default:0" json:"download_count"`
	AverageRating float64 `gorm:"type:decimal(3,2);not null;default:0" json:"average_rating"`
	RatingCount   int64   `gorm:"not null;default:0" json:"rating_count"`

	// filled by the uploader join, never written
	UploaderName string `gorm:"->;-:migration" json:"uploader_name"`
	Tags         []Tag  `gorm:"-" json:"tags"`
}

func (Resource) TableName() string {
	return "resources"
}

func (r *Resource) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
