package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const referralCodeLength = 8

type ReferralCode struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Code      string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *ReferralCode) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Code == "" {
		r.Code = NewReferralCode()
	}
	return nil
}

// NewReferralCode returns 8 upper-case hex characters.
func NewReferralCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:referralCodeLength])
}

// NormalizeReferralCode trims and upper-cases user input.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
