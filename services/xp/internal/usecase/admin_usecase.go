package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xp-cashout/pkg/logger"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"
)

const maxExportRows = 10000

type AdminUseCase interface {
	// MarkPaid settles a pending withdrawal. Repeating it with the same
	// payout reference returns the withdrawal unchanged.
	MarkPaid(ctx context.Context, withdrawalID, payoutRef string) (*entity.Withdrawal, error)
	// Reject closes a pending withdrawal without touching the ledger.
	Reject(ctx context.Context, withdrawalID, reason string) (*entity.Withdrawal, error)
	ExportPending(ctx context.Context) (*entity.PayoutExport, error)
}

type adminUseCase struct {
	store    persistent.Store
	uploader ObjectUploader
	logger   *logger.Logger
	now      func() time.Time
}

func NewAdminUseCase(store persistent.Store, uploader ObjectUploader, logger *logger.Logger) AdminUseCase {
	return &adminUseCase{
		store:    store,
		uploader: uploader,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *adminUseCase) MarkPaid(ctx context.Context, withdrawalID, payoutRef string) (*entity.Withdrawal, error) {
	if payoutRef == "" {
		return nil, invalid("payout_ref is required")
	}
	return uc.transition(ctx, withdrawalID, func(w *entity.Withdrawal) (bool, error) {
		switch w.Status {
		case entity.WithdrawalPaid:
			if w.PayoutRef != nil && *w.PayoutRef == payoutRef {
				return false, nil
			}
			return false, ErrInvalidStatus
		case entity.WithdrawalPending:
			w.Status = entity.WithdrawalPaid
			w.PayoutRef = &payoutRef
			return true, nil
		}
		return false, ErrInvalidStatus
	})
}

func (uc *adminUseCase) Reject(ctx context.Context, withdrawalID, reason string) (*entity.Withdrawal, error) {
	if reason == "" {
		return nil, invalid("reason is required")
	}
	return uc.transition(ctx, withdrawalID, func(w *entity.Withdrawal) (bool, error) {
		switch w.Status {
		case entity.WithdrawalRejected:
			return false, nil
		case entity.WithdrawalPending:
			w.Status = entity.WithdrawalRejected
			w.RejectReason = &reason
			return true, nil
		}
		return false, ErrInvalidStatus
	})
}

func (uc *adminUseCase) transition(ctx context.Context, withdrawalID string, apply func(w *entity.Withdrawal) (bool, error)) (*entity.Withdrawal, error) {
	var withdrawal *entity.Withdrawal
	err := uc.store.Transaction(ctx, func(tx persistent.Store) error {
		w, err := tx.Withdrawals().GetForUpdate(ctx, withdrawalID)
		if err != nil {
			return err
		}
		changed, err := apply(w)
		if err != nil || !changed {
			withdrawal = w
			return err
		}
		w.UpdatedAt = uc.now()
		if err := tx.Withdrawals().Update(ctx, w); err != nil {
			return err
		}
		withdrawal = w
		return nil
	})
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		if !isBusinessError(err) {
			uc.logger.Error("Failed to update withdrawal %s: %v", withdrawalID, err)
		}
		return nil, err
	}
	uc.logger.Info("Withdrawal %s is %s", withdrawal.ID, withdrawal.Status)
	return withdrawal, nil
}

// ExportPending writes pending withdrawals as CSV to object storage for the
// payout operator. No state changes.
func (uc *adminUseCase) ExportPending(ctx context.Context) (*entity.PayoutExport, error) {
	if uc.uploader == nil {
		return nil, ErrExportUnavailable
	}

	withdrawals, err := uc.store.Withdrawals().ListByStatus(ctx, entity.WithdrawalPending, maxExportRows)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}

	body, err := encodePayoutCSV(withdrawals)
	if err != nil {
		return nil, fmt.Errorf("encode payout csv: %w", err)
	}

	key := fmt.Sprintf("exports/payouts-%s.csv", uc.now().Format("20060102T150405Z"))
	url, err := uc.uploader.Upload(ctx, key, body, "text/csv")
	if err != nil {
		uc.logger.Error("Failed to upload payout export: %v", err)
		return nil, fmt.Errorf("upload payout export: %w", err)
	}

	uc.logger.Info("Exported %d pending withdrawals to %s", len(withdrawals), key)
	return &entity.PayoutExport{URL: url, Count: len(withdrawals)}, nil
}

func encodePayoutCSV(withdrawals []*entity.Withdrawal) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"withdrawal_id", "user_id", "phone_snapshot", "xp_debited", "amount", "currency", "rate_snapshot", "created_at"}); err != nil {
		return nil, err
	}
	for _, wd := range withdrawals {
		if err := w.Write([]string{
			wd.ID,
			wd.UserID,
			csvSafe(wd.PhoneSnapshot),
			strconv.FormatInt(wd.XPDebited, 10),
			strconv.FormatInt(wd.Amount, 10),
			wd.Currency,
			wd.RateSnapshot.String(),
			wd.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// csvSafe keeps spreadsheet tools from evaluating a cell as a formula.
// A plain international phone number is left as is.
func csvSafe(value string) string {
	if value == "" || !strings.ContainsRune("=+-@\t\r", rune(value[0])) || isPhoneNumber(value) {
		return value
	}
	return "'" + value
}

func isPhoneNumber(value string) bool {
	if len(value) < 2 || value[0] != '+' {
		return false
	}
	for _, r := range value[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
