package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Device struct {
	ID                string    `gorm:"type:uuid;primary_key" json:"id"`
	UserID            string    `gorm:"type:uuid;not null;index" json:"user_id"`
	DeviceFingerprint string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"device_fingerprint"`
	Platform          string    `gorm:"type:varchar(20)" json:"platform"`
	IsEmulator        bool      `gorm:"not null;default:false" json:"is_emulator"`
	IsRooted          bool      `gorm:"not null;default:false" json:"is_rooted"`
	LastSeenAt        time.Time `json:"last_seen_at"`
	CreatedAt         time.Time `json:"created_at"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// Risky reports whether the device should get the reduced earn cap.
func (d *Device) Risky() bool {
	return d.IsEmulator || d.IsRooted
}
