package models

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:191;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:32;not null;default:user"`
	IsSetUp      bool   `gorm:"default:false"`
	Enabled      bool   `gorm:"default:false"`
	Locked       bool   `gorm:"default:false"`
	AccountID    string `gorm:"size:64;index"`
	Account      Account `gorm:"foreignKey:AccountID;references:AccountID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
