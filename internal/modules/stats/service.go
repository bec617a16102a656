package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"parkease/internal/domain"
	"parkease/internal/pkg/apperr"
)

const (
	defaultActivityLimit = 10
	maxActivityLimit     = 100
	defaultTrendWindow   = 24 * time.Hour
)

type Service struct {
	sessions SessionReader
	lots     LotReader
	users    UserCounter
	now      func() time.Time
}

func NewService(sessions SessionReader, lots LotReader, users UserCounter) *Service {
	return &Service{sessions: sessions, lots: lots, users: users, now: time.Now}
}

// AggregateRevenue sums completed sessions whose end time falls in [from, to).
func (s *Service) AggregateRevenue(ctx context.Context, from, to *time.Time) (*RevenueWindow, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, apperr.InvalidField("to", "must not be before from")
	}
	total, err := s.sessions.SumRevenue(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	return &RevenueWindow{From: from, To: to, Revenue: total}, nil
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	revenue, err := s.sessions.SumRevenue(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	active, err := s.sessions.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}
	totals, err := s.lots.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("lot totals: %w", err)
	}
	drivers, err := s.users.CountByRole(ctx, domain.RoleDriver)
	if err != nil {
		return nil, fmt.Errorf("count drivers: %w", err)
	}

	d := &Dashboard{
		TotalRevenue:   revenue,
		ActiveSessions: active,
		TotalLots:      totals.Lots,
		TotalDrivers:   drivers,
		OccupiedSpots:  totals.Occupied,
		TotalSpots:     totals.Total,
	}
	if totals.Total > 0 {
		d.OccupancyRate = int(math.Round(float64(totals.Occupied) / float64(totals.Total) * 100))
	}
	return d, nil
}

// RecentActivity lists the newest sessions of any status.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	list, err := s.sessions.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}

	out := make([]ActivityItem, 0, len(list))
	for _, sess := range list {
		item := ActivityItem{
			SessionID:   sess.ID,
			VehicleType: string(sess.VehicleType),
			Status:      string(sess.Status),
			StartTime:   sess.StartTime,
			EndTime:     sess.EndTime,
			TotalAmount: sess.TotalAmount,
			CreatedAt:   sess.CreatedAt,
		}
		if sess.User != nil {
			item.Username = sess.User.Username
		}
		if sess.Lot != nil {
			item.LotName = sess.Lot.Name
		}
		out = append(out, item)
	}
	return out, nil
}

// RevenueByHour buckets completed sessions by the UTC hour they ended in.
// since defaults to 24 hours ago; empty hours are omitted.
func (s *Service) RevenueByHour(ctx context.Context, since *time.Time) ([]HourBucket, error) {
	from := s.now().UTC().Add(-defaultTrendWindow)
	if since != nil {
		from = since.UTC()
	}

	list, err := s.sessions.CompletedSince(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("completed sessions: %w", err)
	}
	return BucketByHour(list), nil
}

// BucketByHour groups by end-time hour of day, labelled "HH:00", ascending.
func BucketByHour(list []domain.Session) []HourBucket {
	byHour := map[int]*HourBucket{}
	for _, sess := range list {
		if sess.EndTime == nil {
			continue
		}
		h := sess.EndTime.UTC().Hour()
		b, ok := byHour[h]
		if !ok {
			b = &HourBucket{Hour: fmt.Sprintf("%02d:00", h)}
			byHour[h] = b
		}
		b.Revenue += sess.TotalAmount
		b.Sessions++
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	out := make([]HourBucket, 0, len(hours))
	for _, h := range hours {
		out = append(out, *byHour[h])
	}
	return out
}
