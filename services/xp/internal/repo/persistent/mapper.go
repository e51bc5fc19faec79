package persistent

import (
	"encoding/json"

	"xp-cashout/pkg/models"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var emptyMetadata = json.RawMessage(`{}`)

func ToLedgerEntity(m *model.LedgerEntryModel) *entity.LedgerEntry {
	if m == nil {
		return nil
	}

	return &entity.LedgerEntry{
		ID:        m.ID,
		UserID:    m.UserID,
		Source:    m.Source,
		XPDelta:   m.XPDelta,
		Metadata:  json.RawMessage(m.Metadata),
		CreatedAt: m.CreatedAt,
	}
}

func ToLedgerModel(e *entity.LedgerEntry) *model.LedgerEntryModel {
	if e == nil {
		return nil
	}

	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	metadata := e.Metadata
	if len(metadata) == 0 || string(metadata) == "null" {
		metadata = emptyMetadata
	}

	return &model.LedgerEntryModel{
		ID:        id,
		UserID:    e.UserID,
		Source:    e.Source,
		XPDelta:   e.XPDelta,
		Metadata:  datatypes.JSON(metadata),
		CreatedAt: e.CreatedAt,
	}
}

func ToWithdrawalEntity(m *model.WithdrawalModel) *entity.Withdrawal {
	if m == nil {
		return nil
	}

	return &entity.Withdrawal{
		ID:            m.ID,
		UserID:        m.UserID,
		PhoneSnapshot: m.PhoneSnapshot,
		XPDebited:     m.XPDebited,
		Amount:        m.Amount,
		Currency:      m.Currency,
		RateSnapshot:  m.RateSnapshot,
		Status:        entity.WithdrawalStatus(m.Status),
		PayoutRef:     m.PayoutRef,
		RejectReason:  m.RejectReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func ToWithdrawalModel(e *entity.Withdrawal) *model.WithdrawalModel {
	if e == nil {
		return nil
	}

	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}

	return &model.WithdrawalModel{
		ID:            id,
		UserID:        e.UserID,
		PhoneSnapshot: e.PhoneSnapshot,
		XPDebited:     e.XPDebited,
		Amount:        e.Amount,
		Currency:      e.Currency,
		RateSnapshot:  e.RateSnapshot,
		Status:        string(e.Status),
		PayoutRef:     e.PayoutRef,
		RejectReason:  e.RejectReason,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func ToReferralEntity(m *model.ReferralModel) *entity.Referral {
	if m == nil {
		return nil
	}

	return &entity.Referral{
		ID:          m.ID,
		ReferrerID:  m.ReferrerID,
		ReferredID:  m.ReferredID,
		Code:        m.Code,
		Status:      entity.ReferralStatus(m.Status),
		QualifiedAt: m.QualifiedAt,
		RewardedAt:  m.RewardedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func ToReferralModel(e *entity.Referral) *model.ReferralModel {
	if e == nil {
		return nil
	}

	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}

	return &model.ReferralModel{
		ID:          id,
		ReferrerID:  e.ReferrerID,
		ReferredID:  e.ReferredID,
		Code:        e.Code,
		Status:      string(e.Status),
		QualifiedAt: e.QualifiedAt,
		RewardedAt:  e.RewardedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func ToConversionRateEntity(m *model.ConversionRateModel) *entity.ConversionRate {
	if m == nil {
		return nil
	}

	return &entity.ConversionRate{
		ID:            m.ID,
		Rate:          m.Rate,
		EffectiveFrom: m.EffectiveFrom,
	}
}

func ToProfileEntity(m *models.UserProfile) *entity.Profile {
	if m == nil {
		return nil
	}

	return &entity.Profile{
		ID:            m.ID,
		Phone:         m.Phone,
		Email:         m.Email,
		KYCLevel:      string(m.KYCLevel),
		Status:        string(m.Status),
		PayoutContact: m.PayoutContact(),
	}
}
