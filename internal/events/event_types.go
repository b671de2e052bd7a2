package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered   EventType = "user_registered"
	EventPasswordChanged  EventType = "password_changed"
	EventPaymentConfirmed EventType = "payment_confirmed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Email string `json:"email"`
}

// PaymentConfirmedPayload payload.
type PaymentConfirmedPayload struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"payment_id"`
}
