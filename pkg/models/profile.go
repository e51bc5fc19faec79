package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KYCLevel string

const (
	KYCLevelNone     KYCLevel = "none"
	KYCLevelBasic    KYCLevel = "basic"
	KYCLevelVerified KYCLevel = "verified"
)

type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// UserProfile is the public projection of an account. Rows are written by
// the signup flow; the xp service only bootstraps missing ones and locks them
// to serialize a user's balance mutations.
type UserProfile struct {
	ID        string        `gorm:"type:uuid;primary_key" json:"id"`
	Phone     *string       `gorm:"type:varchar(32)" json:"phone"`
	Email     *string       `gorm:"type:varchar(255)" json:"email"`
	KYCLevel  KYCLevel      `gorm:"type:varchar(20);not null;default:'none'" json:"kyc_level"`
	Status    ProfileStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "users_public"
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// PayoutContact picks the contact snapshotted onto a withdrawal.
func (p *UserProfile) PayoutContact() string {
	if p.Phone != nil && *p.Phone != "" {
		return *p.Phone
	}
	if p.Email != nil && *p.Email != "" {
		return *p.Email
	}
	return "N/A"
}
