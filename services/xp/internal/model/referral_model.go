package model

import "time"

type ReferralModel struct {
	ID          string `gorm:"type:uuid;primary_key"`
	ReferrerID  string `gorm:"type:uuid;not null;index"`
	ReferredID  string `gorm:"type:uuid;not null;uniqueIndex"`
	Code        string `gorm:"type:varchar(16);not null"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending'"`
	QualifiedAt *time.Time
	RewardedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ReferralModel) TableName() string {
	return "referrals"
}
