package persistent

import (
	"context"

	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferralRepository interface {
	// Create returns ErrDuplicate when the referred user already has a referral.
	Create(ctx context.Context, referral *entity.Referral) error
	GetByReferred(ctx context.Context, referredID string) (*entity.Referral, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Referral, error)
	Update(ctx context.Context, referral *entity.Referral) error
	ListByReferrer(ctx context.Context, referrerID string) ([]*entity.Referral, error)
	CountByStatus(ctx context.Context, referrerID string) (map[entity.ReferralStatus]int64, error)
}

type referralRepository struct {
	db *gorm.DB
}

func (r *referralRepository) Create(ctx context.Context, referral *entity.Referral) error {
	m := ToReferralModel(referral)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	referral.ID = m.ID
	referral.CreatedAt = m.CreatedAt
	referral.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *referralRepository) GetByReferred(ctx context.Context, referredID string) (*entity.Referral, error) {
	var m model.ReferralModel
	if err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).Take(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return ToReferralEntity(&m), nil
}

func (r *referralRepository) GetForUpdate(ctx context.Context, id string) (*entity.Referral, error) {
	var m model.ReferralModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return ToReferralEntity(&m), nil
}

func (r *referralRepository) Update(ctx context.Context, referral *entity.Referral) error {
	return r.db.WithContext(ctx).
		Model(&model.ReferralModel{}).
		Where("id = ?", referral.ID).
		Updates(map[string]interface{}{
			"status":       string(referral.Status),
			"qualified_at": referral.QualifiedAt,
			"rewarded_at":  referral.RewardedAt,
			"updated_at":   referral.UpdatedAt,
		}).Error
}

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]*entity.Referral, error) {
	var models []model.ReferralModel
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	referrals := make([]*entity.Referral, len(models))
	for i := range models {
		referrals[i] = ToReferralEntity(&models[i])
	}
	return referrals, nil
}

func (r *referralRepository) CountByStatus(ctx context.Context, referrerID string) (map[entity.ReferralStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.ReferralModel{}).
		Select("status, COUNT(*) AS count").
		Where("referrer_id = ?", referrerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.ReferralStatus]int64, len(rows))
	for _, row := range rows {
		counts[entity.ReferralStatus(row.Status)] = row.Count
	}
	return counts, nil
}
