package lot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"parkease/internal/database"
	"parkease/internal/domain"
	"parkease/internal/pkg/apperr"
	"parkease/internal/repository"
)

type fakeCounter struct {
	counts map[int64]int
}

func (f fakeCounter) ActiveCountsByLot(ctx context.Context) (map[int64]int, error) {
	return f.counts, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:", database.Options{Silent: true})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *repository.LotRepository) {
	repo := repository.NewLotRepository(newTestDB(t))
	return NewService(repo, fakeCounter{counts: map[int64]int{}}), repo
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func createLot(t *testing.T, svc *Service, name string, lat, lon float64, spots int) *domain.Lot {
	t.Helper()
	l, err := svc.Create(context.Background(), CreateLotRequest{
		Name:         name,
		Lat:          f64(lat),
		Lon:          f64(lon),
		PricePerHour: f64(25),
		TotalSpots:   intp(spots),
	})
	require.NoError(t, err)
	return l
}

func TestService_Create_AllowsZeroAndRejectsMissing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.Create(ctx, CreateLotRequest{
		Name:         "  Null Island  ",
		Lat:          f64(0),
		Lon:          f64(0),
		PricePerHour: f64(0),
		TotalSpots:   intp(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Null Island", l.Name)
	assert.Equal(t, domain.VehicleBoth, l.VehicleType)
	assert.Equal(t, 0, l.OccupiedSpots)
	assert.Equal(t, domain.LotAvailable, l.Status())

	_, err = svc.Create(ctx, CreateLotRequest{Name: "No coords", PricePerHour: f64(10), TotalSpots: intp(1)})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["lat"])
	assert.Equal(t, "required", verr.Fields["lon"])

	_, err = svc.Create(ctx, CreateLotRequest{
		Name: "Bad", Lat: f64(91), Lon: f64(10), PricePerHour: f64(-1), TotalSpots: intp(0), VehicleType: "truck",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lat")
	assert.Contains(t, verr.Fields, "price_per_hour")
	assert.Contains(t, verr.Fields, "total_spots")
	assert.Contains(t, verr.Fields, "vehicle_type")
}

func TestService_ReserveAndRelease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := createLot(t, svc, "Two spots", 27.7, 85.3, 2)

	require.NoError(t, svc.ReserveSpot(ctx, l.ID))
	require.NoError(t, svc.ReserveSpot(ctx, l.ID))
	assert.ErrorIs(t, svc.ReserveSpot(ctx, l.ID), ErrLotFull)

	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.OccupiedSpots)
	assert.Equal(t, domain.LotFull, got.Status())

	require.NoError(t, svc.ReleaseSpot(ctx, l.ID))
	require.NoError(t, svc.ReleaseSpot(ctx, l.ID))
	// floored at zero
	require.NoError(t, svc.ReleaseSpot(ctx, l.ID))

	got, err = svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.OccupiedSpots)

	assert.ErrorIs(t, svc.ReserveSpot(ctx, 9999), ErrLotNotFound)
	assert.ErrorIs(t, svc.ReleaseSpot(ctx, 9999), ErrLotNotFound)
}

func TestService_ReserveSpot_ConcurrentCallersNeverOverfill(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const spots, callers = 5, 20
	l := createLot(t, svc, "Busy", 27.7, 85.3, spots)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		full    int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.ReserveSpot(ctx, l.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, ErrLotFull):
				full++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, spots, success)
	assert.Equal(t, callers-spots, full)

	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, spots, got.OccupiedSpots)
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := createLot(t, svc, "Resizable", 27.7, 85.3, 3)
	require.NoError(t, svc.ReserveSpot(ctx, l.ID))
	require.NoError(t, svc.ReserveSpot(ctx, l.ID))

	_, err := svc.Update(ctx, l.ID, UpdateLotRequest{TotalSpots: intp(1)})
	assert.ErrorIs(t, err, ErrCapacityBelowOccupancy)

	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalSpots)

	updated, err := svc.Update(ctx, l.ID, UpdateLotRequest{TotalSpots: intp(2), PricePerHour: f64(0)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TotalSpots)
	assert.Equal(t, 0.0, updated.PricePerHour)
	assert.Equal(t, "Resizable", updated.Name)
	assert.Equal(t, domain.LotFull, updated.Status())

	_, err = svc.Update(ctx, 4242, UpdateLotRequest{Name: strp("ghost")})
	assert.ErrorIs(t, err, ErrLotNotFound)

	_, err = svc.Update(ctx, l.ID, UpdateLotRequest{Lat: f64(-100)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func strp(s string) *string { return &s }

func TestService_Delete_RejectsLotInUse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := createLot(t, svc, "Occupied", 27.7, 85.3, 2)
	require.NoError(t, svc.ReserveSpot(ctx, l.ID))

	assert.ErrorIs(t, svc.Delete(ctx, l.ID), ErrLotInUse)
	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OccupiedSpots)

	require.NoError(t, svc.ReleaseSpot(ctx, l.ID))
	require.NoError(t, svc.Delete(ctx, l.ID))

	_, err = svc.Get(ctx, l.ID)
	assert.ErrorIs(t, err, ErrLotNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, l.ID), ErrLotNotFound)
}

func TestService_List_SortsByDistance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	far := createLot(t, svc, "Pokhara", 28.2096, 83.9856, 5)
	near := createLot(t, svc, "Thamel", 27.7154, 85.3123, 5)
	mid := createLot(t, svc, "Patan", 27.6727, 85.3250, 1)
	_, err := svc.Update(ctx, far.ID, UpdateLotRequest{VehicleType: strp("bike")})
	require.NoError(t, err)
	require.NoError(t, svc.ReserveSpot(ctx, mid.ID))

	views, err := svc.List(ctx, ListLotsQuery{Lat: f64(27.7172), Lon: f64(85.3240)})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, near.ID, views[0].ID)
	assert.Equal(t, mid.ID, views[1].ID)
	assert.Equal(t, far.ID, views[2].ID)
	require.NotNil(t, views[0].DistanceKm)
	assert.Less(t, *views[0].DistanceKm, 2.0)

	views, err = svc.List(ctx, ListLotsQuery{Lat: f64(27.7172), Lon: f64(85.3240), RadiusKm: f64(20)})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = svc.List(ctx, ListLotsQuery{AvailableOnly: true, VehicleType: "car"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, near.ID, views[0].ID)

	_, err = svc.List(ctx, ListLotsQuery{Lat: f64(27.7)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_Nearest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	full := createLot(t, svc, "Full", 27.7172, 85.3240, 1)
	require.NoError(t, svc.ReserveSpot(ctx, full.ID))
	open := createLot(t, svc, "Open", 27.7000, 85.3000, 1)

	v, err := svc.Nearest(ctx, NearestQuery{Lat: f64(27.7172), Lon: f64(85.3240), VehicleType: "car"})
	require.NoError(t, err)
	assert.Equal(t, open.ID, v.ID)

	require.NoError(t, svc.ReserveSpot(ctx, open.ID))
	_, err = svc.Nearest(ctx, NearestQuery{Lat: f64(27.7172), Lon: f64(85.3240)})
	assert.ErrorIs(t, err, ErrNoLotAvailable)
}

func TestService_Reconcile(t *testing.T) {
	repo := repository.NewLotRepository(newTestDB(t))
	counter := fakeCounter{counts: map[int64]int{}}
	svc := NewService(repo, counter)
	ctx := context.Background()

	drifted := createLot(t, svc, "Drifted", 27.7, 85.3, 4)
	clean := createLot(t, svc, "Clean", 27.8, 85.4, 4)
	require.NoError(t, repo.SetOccupied(ctx, drifted.ID, 3))
	require.NoError(t, svc.ReserveSpot(ctx, clean.ID))
	counter.counts[drifted.ID] = 1
	counter.counts[clean.ID] = 1

	fixed, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, Correction{LotID: drifted.ID, Name: "Drifted", Recorded: 3, Actual: 1}, fixed[0])

	got, err := svc.Get(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OccupiedSpots)
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(27.7, 85.3, 27.7, 85.3), 1e-9)
	// Kathmandu to Pokhara is roughly 140 km as the crow flies
	assert.InDelta(t, 142, HaversineKm(27.7172, 85.3240, 28.2096, 83.9856), 5)
}
