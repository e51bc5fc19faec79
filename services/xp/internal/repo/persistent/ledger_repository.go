package persistent

import (
	"context"
	"time"

	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/model"

	"gorm.io/gorm"
)

type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	Balance(ctx context.Context, userID string) (int64, error)
	// CreditedSince sums positive earn entries created at or after since.
	// Referral rewards do not count towards the daily earn cap.
	CreditedSince(ctx context.Context, userID string, since time.Time) (int64, error)
	SumBySource(ctx context.Context, userID, source string) (int64, error)
	History(ctx context.Context, userID string, before *entity.LedgerCursor, limit int) ([]*entity.LedgerEntry, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Append(ctx context.Context, entry *entity.LedgerEntry) error {
	m := ToLedgerModel(entry)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	entry.ID = m.ID
	entry.CreatedAt = m.CreatedAt
	return nil
}

func (r *ledgerRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Select("COALESCE(SUM(xp_delta), 0)").
		Where("user_id = ?", userID).
		Scan(&balance).Error
	return balance, err
}

func (r *ledgerRepository) CreditedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Select("COALESCE(SUM(xp_delta), 0)").
		Where("user_id = ? AND xp_delta > 0 AND source <> ? AND created_at >= ?", userID, entity.SourceReferralReward, since).
		Scan(&total).Error
	return total, err
}

func (r *ledgerRepository) SumBySource(ctx context.Context, userID, source string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntryModel{}).
		Select("COALESCE(SUM(xp_delta), 0)").
		Where("user_id = ? AND source = ?", userID, source).
		Scan(&total).Error
	return total, err
}

func (r *ledgerRepository) History(ctx context.Context, userID string, before *entity.LedgerCursor, limit int) ([]*entity.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if before != nil {
		query = query.Where("(created_at, id) < (?, ?)", before.CreatedAt, before.ID)
	}

	var models []model.LedgerEntryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*entity.LedgerEntry, len(models))
	for i := range models {
		entries[i] = ToLedgerEntity(&models[i])
	}
	return entries, nil
}
