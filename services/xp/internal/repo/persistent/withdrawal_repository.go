package persistent

import (
	"context"
	"time"

	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WithdrawalRepository interface {
	Create(ctx context.Context, w *entity.Withdrawal) error
	// Recent returns the user's latest withdrawals, newest first, in any status.
	Recent(ctx context.Context, userID string, limit int) ([]*entity.Withdrawal, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Withdrawal, int64, error)
	ListByStatus(ctx context.Context, status entity.WithdrawalStatus, limit int) ([]*entity.Withdrawal, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Withdrawal, error)
	Update(ctx context.Context, w *entity.Withdrawal) error
}

type withdrawalRepository struct {
	db *gorm.DB
}

func (r *withdrawalRepository) Create(ctx context.Context, w *entity.Withdrawal) error {
	m := ToWithdrawalModel(w)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	w.ID = m.ID
	w.CreatedAt = m.CreatedAt
	w.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *withdrawalRepository) Recent(ctx context.Context, userID string, limit int) ([]*entity.Withdrawal, error) {
	var models []model.WithdrawalModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toWithdrawalEntities(models), nil
}

func (r *withdrawalRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WithdrawalModel{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Withdrawal, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.WithdrawalModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []model.WithdrawalModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return toWithdrawalEntities(models), total, nil
}

func (r *withdrawalRepository) ListByStatus(ctx context.Context, status entity.WithdrawalStatus, limit int) ([]*entity.Withdrawal, error) {
	var models []model.WithdrawalModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toWithdrawalEntities(models), nil
}

func (r *withdrawalRepository) GetForUpdate(ctx context.Context, id string) (*entity.Withdrawal, error) {
	var m model.WithdrawalModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return ToWithdrawalEntity(&m), nil
}

func (r *withdrawalRepository) Update(ctx context.Context, w *entity.Withdrawal) error {
	return r.db.WithContext(ctx).
		Model(&model.WithdrawalModel{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{
			"status":        string(w.Status),
			"payout_ref":    w.PayoutRef,
			"reject_reason": w.RejectReason,
			"updated_at":    w.UpdatedAt,
		}).Error
}

func toWithdrawalEntities(models []model.WithdrawalModel) []*entity.Withdrawal {
	withdrawals := make([]*entity.Withdrawal, len(models))
	for i := range models {
		withdrawals[i] = ToWithdrawalEntity(&models[i])
	}
	return withdrawals
}
