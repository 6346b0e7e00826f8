package models

import "time"

type NotificationType string

const (
	NotificationLog    NotificationType = "log"
	NotificationDevice NotificationType = "device"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey"`
	UserID    uint             `gorm:"index;not null"`
	Message   string           `gorm:"size:512"`
	IsSeen    bool             `gorm:"default:false;index"`
	Type      NotificationType `gorm:"size:16"`
	DeviceID  string           `gorm:"size:64;index"`
	Timestamp time.Time
	CreatedAt time.Time
}
