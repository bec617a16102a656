package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/database"
	"parkease/internal/domain"
	"parkease/internal/pkg/apperr"
	"parkease/internal/repository"
)

type seeded struct {
	svc      *Service
	lots     *repository.LotRepository
	sessions *repository.SessionRepository
	users    *repository.UserRepository
	now      time.Time
}

func setup(t *testing.T) *seeded {
	t.Helper()
	db, err := database.Connect(":memory:", database.Options{Silent: true})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	s := &seeded{
		lots:     repository.NewLotRepository(db),
		sessions: repository.NewSessionRepository(db),
		users:    repository.NewUserRepository(db),
		now:      time.Date(2024, 5, 2, 12, 30, 0, 0, time.UTC),
	}
	s.svc = NewService(s.sessions, s.lots, s.users)
	s.svc.now = func() time.Time { return s.now }
	return s
}

func (s *seeded) user(t *testing.T, name string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *seeded) lot(t *testing.T, name string, total, occupied int) *domain.Lot {
	t.Helper()
	l := &domain.Lot{Name: name, Lat: 27.7, Lon: 85.3, PricePerHour: 25, TotalSpots: total, OccupiedSpots: occupied, VehicleType: domain.VehicleBoth}
	require.NoError(t, s.lots.Create(context.Background(), l))
	return l
}

func (s *seeded) completed(t *testing.T, userID, lotID int64, end time.Time, amount int64) *domain.Session {
	t.Helper()
	sess := &domain.Session{
		UserID: userID, LotID: lotID, VehicleType: domain.VehicleCar,
		StartTime: end.Add(-time.Hour), EndTime: &end, Status: domain.SessionCompleted, TotalAmount: amount,
	}
	require.NoError(t, s.sessions.Create(context.Background(), sess))
	return sess
}

func TestService_Dashboard(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	driver := s.user(t, "driver1", domain.RoleDriver)
	s.user(t, "driver2", domain.RoleDriver)
	s.user(t, "admin", domain.RoleAdmin)
	a := s.lot(t, "A", 4, 1)
	s.lot(t, "B", 2, 0)

	s.completed(t, driver.ID, a.ID, s.now.Add(-2*time.Hour), 25)
	s.completed(t, driver.ID, a.ID, s.now.Add(-time.Hour), 50)
	require.NoError(t, s.sessions.Create(ctx, &domain.Session{
		UserID: driver.ID, LotID: a.ID, VehicleType: domain.VehicleCar, StartTime: s.now, Status: domain.SessionActive,
	}))

	d, err := s.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(75), d.TotalRevenue)
	assert.Equal(t, int64(1), d.ActiveSessions)
	assert.Equal(t, int64(2), d.TotalLots)
	assert.Equal(t, int64(2), d.TotalDrivers)
	assert.Equal(t, 17, d.OccupancyRate)
}

func TestService_Dashboard_Empty(t *testing.T) {
	s := setup(t)
	d, err := s.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.OccupancyRate)
	assert.Zero(t, d.TotalRevenue)
}

func TestService_AggregateRevenue(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := s.user(t, "d", domain.RoleDriver)
	l := s.lot(t, "A", 4, 0)
	s.completed(t, u.ID, l.ID, s.now.Add(-48*time.Hour), 100)
	s.completed(t, u.ID, l.ID, s.now.Add(-3*time.Hour), 30)
	s.completed(t, u.ID, l.ID, s.now.Add(-time.Hour), 12)

	all, err := s.svc.AggregateRevenue(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(142), all.Revenue)

	from := s.now.Add(-24 * time.Hour)
	to := s.now.Add(-2 * time.Hour)
	win, err := s.svc.AggregateRevenue(ctx, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, int64(30), win.Revenue)

	_, err = s.svc.AggregateRevenue(ctx, &to, &from)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_RecentActivity(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := s.user(t, "sita", domain.RoleDriver)
	l := s.lot(t, "Durbar Square", 4, 0)
	for i := 0; i < 12; i++ {
		s.completed(t, u.ID, l.ID, s.now.Add(-time.Duration(i)*time.Minute), int64(i))
	}

	items, err := s.svc.RecentActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 10)
	assert.Equal(t, "sita", items[0].Username)
	assert.Equal(t, "Durbar Square", items[0].LotName)
	assert.Greater(t, items[0].SessionID, items[1].SessionID)

	items, err = s.svc.RecentActivity(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestService_RevenueByHour(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := s.user(t, "d", domain.RoleDriver)
	l := s.lot(t, "A", 4, 0)

	s.completed(t, u.ID, l.ID, time.Date(2024, 5, 2, 9, 5, 0, 0, time.UTC), 10)
	s.completed(t, u.ID, l.ID, time.Date(2024, 5, 2, 9, 55, 0, 0, time.UTC), 15)
	s.completed(t, u.ID, l.ID, time.Date(2024, 5, 1, 23, 10, 0, 0, time.UTC), 7)
	// outside the default 24h window
	s.completed(t, u.ID, l.ID, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), 99)

	buckets, err := s.svc.RevenueByHour(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []HourBucket{
		{Hour: "09:00", Revenue: 25, Sessions: 2},
		{Hour: "23:00", Revenue: 7, Sessions: 1},
	}, buckets)
}

func TestBucketByHour_SkipsOpenSessions(t *testing.T) {
	end := time.Date(2024, 5, 2, 0, 45, 0, 0, time.UTC)
	got := BucketByHour([]domain.Session{
		{TotalAmount: 5, EndTime: &end},
		{TotalAmount: 100},
	})
	assert.Equal(t, []HourBucket{{Hour: "00:00", Revenue: 5, Sessions: 1}}, got)
}
