package session

import (
	"time"

	"parkease/internal/domain"
	"parkease/internal/modules/billing"
)

type StartSessionRequest struct {
	LotID       int64  `json:"lot_id" binding:"required"`
	VehicleType string `json:"vehicle_type"`
}

type SessionView struct {
	ID          int64                `json:"id"`
	UserID      int64                `json:"user_id"`
	LotID       int64                `json:"lot_id"`
	LotName     string               `json:"lot_name,omitempty"`
	VehicleType domain.VehicleType   `json:"vehicle_type"`
	Status      domain.SessionStatus `json:"status"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     *time.Time           `json:"end_time,omitempty"`
	Duration    string               `json:"duration,omitempty"`
	TotalAmount int64                `json:"total_amount"`
}

func NewSessionView(s *domain.Session) SessionView {
	v := SessionView{
		ID:          s.ID,
		UserID:      s.UserID,
		LotID:       s.LotID,
		VehicleType: s.VehicleType,
		Status:      s.Status,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		TotalAmount: s.TotalAmount,
	}
	if s.Lot != nil {
		v.LotName = s.Lot.Name
	}
	if s.EndTime != nil {
		v.Duration = billing.Clock(s.EndTime.Sub(s.StartTime))
	}
	return v
}

func NewSessionViews(list []domain.Session) []SessionView {
	out := make([]SessionView, 0, len(list))
	for i := range list {
		out = append(out, NewSessionView(&list[i]))
	}
	return out
}

// LiveSession is an active session plus its bill as of now.
type LiveSession struct {
	Session SessionView   `json:"session"`
	Quote   billing.Quote `json:"quote"`
}
