package models

import "time"

// Capacity is the hard per-account identity quota imposed by the gateway.
const Capacity = 50

// Account is one shared Cloudflare Zero Trust account from the pool.
// EnrollmentApplicationID and EnrollmentPolicyID stay empty until the
// account's enrollment gate has been bootstrapped.
type Account struct {
	AccountID               string `gorm:"primaryKey;size:64"`
	Email                   string `gorm:"size:191"`
	AuthorizationToken      string `gorm:"size:255;not null"`
	EnrollmentApplicationID string `gorm:"size:64"`
	EnrollmentPolicyID      string `gorm:"size:64"`
	UserNum                 int    `gorm:"not null;default:0"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (a *Account) HasFreeSlot() bool { return a.UserNum < Capacity }
