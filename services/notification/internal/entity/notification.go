package entity

const (
	ChannelEmail = "email"
	ChannelInApp = "in_app"
)

// Notification is a message delivered to a user about their account.
type Notification struct {
	UserID       string `json:"user_id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	WithdrawalID string `json:"withdrawal_id,omitempty"`
	Channel      string `json:"channel"`
	CreatedAt    string `json:"created_at"`
}
