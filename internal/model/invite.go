package model

import "time"

const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"

	ChannelEmail = "email"

	// MaxDeliveryRetries caps retry_count for a delivery row.
	MaxDeliveryRetries = 3
)

type InviteDelivery struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	DeliveryDate      string     `json:"delivery_date"`
	Channel           string     `json:"channel"`
	CurationID        string     `json:"curation_id"`
	Status            string     `json:"status"`
	RetryCount        int        `json:"retry_count"`
	ErrorMessage      *string    `json:"error_message"`
	Provider          *string    `json:"provider"`
	ProviderMessageID *string    `json:"provider_message_id"`
	LastAttemptAt     *time.Time `json:"last_attempt_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Recipient is an opted-in profile considered by an invite run.
type Recipient struct {
	UserID      string
	Email       string
	DisplayName string
}
