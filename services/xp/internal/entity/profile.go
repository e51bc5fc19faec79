package entity

type Profile struct {
	ID       string  `json:"id"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	KYCLevel string  `json:"kyc_level"`
	Status   string  `json:"status"`

	// PayoutContact is phone, else email, else "N/A".
	PayoutContact string `json:"-"`
}

type Account struct {
	Profile      *Profile `json:"profile"`
	XPBalance    int64    `json:"xp_balance"`
	ReferralCode *string  `json:"referral_code"`
}
