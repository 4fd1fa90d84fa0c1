package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventUserLoggedOut  EventType = "user_logged_out"
	EventLoginFailed    EventType = "login_failed"
)

// AllEventTypes lists every account event.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventUserLoggedIn,
	EventUserLoggedOut,
	EventLoginFailed,
}

// Event represents an account event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, userID int64, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginFailedReason stays server side; clients only ever see the generic message.
type LoginFailedReason string

const (
	ReasonUnknownEmail  LoginFailedReason = "unknown_email"
	ReasonWrongPassword LoginFailedReason = "wrong_password"
)

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Email  string            `json:"email"`
	Reason LoginFailedReason `json:"reason"`
}
