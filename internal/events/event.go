// Package events carries parking session notifications over RabbitMQ.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

// Types double as routing keys on the topic exchange.
const (
	SessionStarted   Type = "session.started"
	SessionCompleted Type = "session.completed"
	SessionCancelled Type = "session.cancelled"
	IntegrityFailure Type = "integrity.failure"
)

type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Session    SessionPayload `json:"session"`
	// Reason is set for integrity failures.
	Reason string `json:"reason,omitempty"`
}

type SessionPayload struct {
	SessionID   int64      `json:"session_id,omitempty"`
	UserID      int64      `json:"user_id"`
	LotID       int64      `json:"lot_id"`
	LotName     string     `json:"lot_name,omitempty"`
	VehicleType string     `json:"vehicle_type,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	TotalAmount int64      `json:"total_amount"`
}

func New(t Type, p SessionPayload, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: now.UTC(),
		Session:    p,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}
