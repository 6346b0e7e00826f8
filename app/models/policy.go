package models

import "time"

// Policy mirrors one gateway DNS rule. The ID is assigned by the remote
// gateway, so a Policy is never persisted before the create round-trip
// completes. Exactly one policy per user has IsAllowAll set: the derived
// aggregate whose traffic is the negated union of all block conditions.
type Policy struct {
	ID         string   `gorm:"primaryKey;size:64"`
	Name       string   `gorm:"size:255;not null"`
	Action     string   `gorm:"size:16;not null"` // "block" or "allow"
	Traffic    string   `gorm:"size:2048"`
	AccountID  string   `gorm:"size:64;index"`
	UserID     uint     `gorm:"index"`
	IsAllowAll bool     `gorm:"default:false"`
	Schedule   Schedule `gorm:"embedded;embeddedPrefix:schedule_"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Schedule holds optional per-weekday enforcement windows in the gateway's
// own format ("08:00-12:30,17:00-21:00").
type Schedule struct {
	Mon      string `json:"mon,omitempty"`
	Tue      string `json:"tue,omitempty"`
	Wed      string `json:"wed,omitempty"`
	Thu      string `json:"thu,omitempty"`
	Fri      string `json:"fri,omitempty"`
	Sat      string `json:"sat,omitempty"`
	Sun      string `json:"sun,omitempty"`
	TimeZone string `json:"time_zone,omitempty"`
}

func (s Schedule) IsZero() bool {
	return s == Schedule{}
}
