package lot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"parkease/internal/domain"
	"parkease/internal/pkg/apperr"
	"parkease/internal/pkg/validator"
	"parkease/internal/repository"
)

type Service struct {
	lots     LotRepository
	sessions ActiveSessionCounter
}

func NewService(lots LotRepository, sessions ActiveSessionCounter) *Service {
	return &Service{lots: lots, sessions: sessions}
}

// ReserveSpot takes one spot on the lot. Concurrent callers racing for the
// last spot get exactly one success; the rest see ErrLotFull.
func (s *Service) ReserveSpot(ctx context.Context, lotID int64) error {
	ok, err := s.lots.IncrementOccupied(ctx, lotID)
	if err != nil {
		return fmt.Errorf("reserve spot: %w", err)
	}
	if ok {
		return nil
	}

	if _, err := s.Get(ctx, lotID); err != nil {
		return err
	}
	return ErrLotFull
}

// ReleaseSpot frees one spot. Releasing an empty lot leaves it at zero and
// is logged rather than failed.
func (s *Service) ReleaseSpot(ctx context.Context, lotID int64) error {
	ok, err := s.lots.DecrementOccupied(ctx, lotID)
	if err != nil {
		return fmt.Errorf("release spot: %w", err)
	}
	if ok {
		return nil
	}

	if _, err := s.Get(ctx, lotID); err != nil {
		return err
	}
	log.Printf("occupancy_anomaly type=release_on_empty lot_id=%d", lotID)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Lot, error) {
	l, err := s.lots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

func (s *Service) Create(ctx context.Context, req CreateLotRequest) (*domain.Lot, error) {
	req.Name = strings.TrimSpace(req.Name)
	fields := validator.Validate(req)
	if fields == nil {
		fields = map[string]string{}
	}
	checkFinite(fields, "lat", req.Lat)
	checkFinite(fields, "lon", req.Lon)
	checkFinite(fields, "price_per_hour", req.PricePerHour)
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields)
	}

	vt := domain.VehicleType(req.VehicleType)
	if vt == "" {
		vt = domain.VehicleBoth
	}

	l := &domain.Lot{
		Name:          req.Name,
		Lat:           *req.Lat,
		Lon:           *req.Lon,
		PricePerHour:  *req.PricePerHour,
		TotalSpots:    *req.TotalSpots,
		OccupiedSpots: 0,
		VehicleType:   vt,
	}
	if err := s.lots.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	log.Printf("lot_created lot_id=%d name=%q total_spots=%d", l.ID, l.Name, l.TotalSpots)
	return l, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateLotRequest) (*domain.Lot, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	fields := validator.Validate(req)
	if fields == nil {
		fields = map[string]string{}
	}
	checkFinite(fields, "lat", req.Lat)
	checkFinite(fields, "lon", req.Lon)
	checkFinite(fields, "price_per_hour", req.PricePerHour)
	if len(fields) > 0 {
		return nil, apperr.Invalid(fields)
	}

	patch := repository.LotPatch{
		Name:         req.Name,
		Lat:          req.Lat,
		Lon:          req.Lon,
		PricePerHour: req.PricePerHour,
		TotalSpots:   req.TotalSpots,
	}
	if req.VehicleType != nil {
		vt := domain.VehicleType(*req.VehicleType)
		patch.VehicleType = &vt
	}

	ok, err := s.lots.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update lot: %w", err)
	}
	if !ok {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrCapacityBelowOccupancy
	}

	return s.Get(ctx, id)
}

// Delete removes a lot only while nobody is parked in it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.lots.DeleteIfIdle(ctx, id)
	if err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	if ok {
		log.Printf("lot_deleted lot_id=%d", id)
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrLotInUse
}

func (s *Service) List(ctx context.Context, q ListLotsQuery) ([]LotView, error) {
	if err := validator.Check(q); err != nil {
		return nil, err
	}
	if (q.Lat == nil) != (q.Lon == nil) {
		return nil, apperr.InvalidField("lat", "lat and lon must be given together")
	}
	if q.RadiusKm != nil && q.Lat == nil {
		return nil, apperr.InvalidField("radius_km", "requires lat and lon")
	}

	lots, err := s.lots.List(ctx, repository.LotFilter{
		VehicleType:   domain.VehicleType(q.VehicleType),
		AvailableOnly: q.AvailableOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}

	out := make([]LotView, 0, len(lots))
	for i := range lots {
		v := NewLotView(&lots[i])
		if q.Lat != nil {
			d := HaversineKm(*q.Lat, *q.Lon, v.Lat, v.Lon)
			if q.RadiusKm != nil && d > *q.RadiusKm {
				continue
			}
			v.DistanceKm = &d
		}
		out = append(out, v)
	}

	if q.Lat != nil {
		sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Nearest is the closest lot with a free spot that takes the vehicle type.
func (s *Service) Nearest(ctx context.Context, q NearestQuery) (*LotView, error) {
	if err := validator.Check(q); err != nil {
		return nil, err
	}

	views, err := s.List(ctx, ListLotsQuery{
		Lat:           q.Lat,
		Lon:           q.Lon,
		VehicleType:   q.VehicleType,
		AvailableOnly: true,
		Limit:         1,
	})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNoLotAvailable
	}
	return &views[0], nil
}

// Reconcile resets every lot's counter to its number of active sessions.
// It is an operator repair step and should run while starts are quiet.
func (s *Service) Reconcile(ctx context.Context) ([]Correction, error) {
	counts, err := s.sessions.ActiveCountsByLot(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}
	lots, err := s.lots.List(ctx, repository.LotFilter{})
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}

	fixed := make([]Correction, 0)
	for _, l := range lots {
		actual := counts[l.ID]
		if l.OccupiedSpots == actual {
			continue
		}
		if err := s.lots.SetOccupied(ctx, l.ID, actual); err != nil {
			return fixed, fmt.Errorf("set occupancy for lot %d: %w", l.ID, err)
		}
		log.Printf("occupancy_reconciled lot_id=%d recorded=%d actual=%d", l.ID, l.OccupiedSpots, actual)
		fixed = append(fixed, Correction{LotID: l.ID, Name: l.Name, Recorded: l.OccupiedSpots, Actual: actual})
	}
	return fixed, nil
}

func checkFinite(fields map[string]string, name string, v *float64) {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		fields[name] = "finite"
	}
}
