package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationApproval     NotificationType = "approval"
	NotificationRejection    NotificationType = "rejection"
	NotificationComment      NotificationType = "comment"
	NotificationRating       NotificationType = "rating"
	NotificationAnnouncement NotificationType = "announcement"
	NotificationNewResource  NotificationType = "new_resource"
)

// Notification is an inbox entry. ResourceID is nulled when the resource is deleted.
type Notification struct {
	ID         string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string           `gorm:"type:varchar(36);not null;index:idx_user_read,priority:1" json:"user_id"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title      string           `gorm:"type:varchar(255);not null" json:"title"`
	Message    string           `gorm:"type:text" json:"message"`
	ResourceID *string          `gorm:"type:varchar(36);index" json:"resource_id"`
	IsRead     bool             `gorm:"not null;default:false;index:idx_user_read,priority:2" json:"is_read"`
	CreatedAt  time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
