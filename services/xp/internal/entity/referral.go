package entity

import "time"

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralQualified ReferralStatus = "qualified"
	ReferralRewarded  ReferralStatus = "rewarded"
)

type Referral struct {
	ID          string         `json:"id"`
	ReferrerID  string         `json:"referrer_id"`
	ReferredID  string         `json:"referred_id"`
	Code        string         `json:"code"`
	Status      ReferralStatus `json:"status"`
	QualifiedAt *time.Time     `json:"qualified_at,omitempty"`
	RewardedAt  *time.Time     `json:"rewarded_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type ReferralStats struct {
	Total             int64 `json:"total"`
	Pending           int64 `json:"pending"`
	Qualified         int64 `json:"qualified"`
	Rewarded          int64 `json:"rewarded"`
	TotalXPEarned     int64 `json:"total_xp_earned"`
	RewardPerReferral int64 `json:"reward_per_referral"`
}

type ReferralOverview struct {
	ReferralCode string        `json:"referral_code"`
	Stats        ReferralStats `json:"stats"`
	Referrals    []*Referral   `json:"referrals"`
}

type ReferralSignupResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Referral *Referral `json:"referral"`
}
