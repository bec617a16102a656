package domain

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type Session struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	LotID       int64         `json:"lot_id"`
	VehicleType VehicleType   `json:"vehicle_type"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	Status      SessionStatus `json:"status"`
	// TotalAmount is in whole currency units; zero while active.
	TotalAmount int64     `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Lot  *Lot  `json:"lot,omitempty"`
	User *User `json:"user,omitempty"`
}

// StoredTime normalizes t to the precision every supported store keeps.
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
