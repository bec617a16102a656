package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"parkease/internal/domain"
)

type LotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

type lotModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Name          string         `gorm:"column:name;size:200;not null"`
	Lat           float64        `gorm:"column:lat;not null"`
	Lon           float64        `gorm:"column:lon;not null"`
	PricePerHour  float64        `gorm:"column:price_per_hour;not null;default:0"`
	TotalSpots    int            `gorm:"column:total_spots;not null"`
	OccupiedSpots int            `gorm:"column:occupied_spots;not null;default:0"`
	VehicleType   string         `gorm:"column:vehicle_type;size:10;not null;default:both;index"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (lotModel) TableName() string { return "parking_lots" }

func toDomainLot(m lotModel) *domain.Lot {
	return &domain.Lot{
		ID:            m.ID,
		Name:          m.Name,
		Lat:           m.Lat,
		Lon:           m.Lon,
		PricePerHour:  m.PricePerHour,
		TotalSpots:    m.TotalSpots,
		OccupiedSpots: m.OccupiedSpots,
		VehicleType:   domain.VehicleType(m.VehicleType),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toLotModel(l *domain.Lot) lotModel {
	return lotModel{
		ID:            l.ID,
		Name:          l.Name,
		Lat:           l.Lat,
		Lon:           l.Lon,
		PricePerHour:  l.PricePerHour,
		TotalSpots:    l.TotalSpots,
		OccupiedSpots: l.OccupiedSpots,
		VehicleType:   string(l.VehicleType),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (r *LotRepository) Create(ctx context.Context, l *domain.Lot) error {
	m := toLotModel(l)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	*l = *toDomainLot(m)
	return nil
}

func (r *LotRepository) GetByID(ctx context.Context, id int64) (*domain.Lot, error) {
	var m lotModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainLot(m), nil
}

type LotFilter struct {
	// VehicleType keeps lots that accept it ("both" lots included).
	VehicleType   domain.VehicleType
	AvailableOnly bool
}

// List returns lots newest first.
func (r *LotRepository) List(ctx context.Context, f LotFilter) ([]domain.Lot, error) {
	q := r.db.WithContext(ctx).Model(&lotModel{})
	if f.VehicleType != "" {
		if f.VehicleType == domain.VehicleBoth {
			q = q.Where("vehicle_type = ?", string(domain.VehicleBoth))
		} else {
			q = q.Where("vehicle_type IN ?", []string{string(f.VehicleType), string(domain.VehicleBoth)})
		}
	}
	if f.AvailableOnly {
		q = q.Where("occupied_spots < total_spots")
	}

	var rows []lotModel
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Lot, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainLot(m))
	}
	return out, nil
}

// IncrementOccupied takes one spot if one is free. It reports false when the
// lot is missing or full; the check and the write are a single statement.
func (r *LotRepository) IncrementOccupied(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&lotModel{}).
		Where("id = ? AND occupied_spots < total_spots", id).
		Updates(map[string]any{"occupied_spots": gorm.Expr("occupied_spots + 1")})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// DecrementOccupied frees one spot, never going below zero.
func (r *LotRepository) DecrementOccupied(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&lotModel{}).
		Where("id = ? AND occupied_spots > 0", id).
		Updates(map[string]any{"occupied_spots": gorm.Expr("occupied_spots - 1")})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

type LotPatch struct {
	Name         *string
	Lat          *float64
	Lon          *float64
	PricePerHour *float64
	TotalSpots   *int
	VehicleType  *domain.VehicleType
}

// Update applies p. A new capacity only lands if it still covers the
// current occupancy; false means nothing matched.
func (r *LotRepository) Update(ctx context.Context, id int64, p LotPatch) (bool, error) {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Lat != nil {
		updates["lat"] = *p.Lat
	}
	if p.Lon != nil {
		updates["lon"] = *p.Lon
	}
	if p.PricePerHour != nil {
		updates["price_per_hour"] = *p.PricePerHour
	}
	if p.VehicleType != nil {
		updates["vehicle_type"] = string(*p.VehicleType)
	}

	q := r.db.WithContext(ctx).Model(&lotModel{}).Where("id = ?", id)
	if p.TotalSpots != nil {
		updates["total_spots"] = *p.TotalSpots
		q = q.Where("occupied_spots <= ?", *p.TotalSpots)
	}
	if len(updates) == 0 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return false, err
		}
		return n == 1, nil
	}

	tx := q.Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// DeleteIfIdle soft deletes the lot only while no spot is occupied.
func (r *LotRepository) DeleteIfIdle(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND occupied_spots = 0", id).
		Delete(&lotModel{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// SetOccupied overwrites the counter; only used to repair drift.
func (r *LotRepository) SetOccupied(ctx context.Context, id int64, occupied int) error {
	return r.db.WithContext(ctx).Model(&lotModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"occupied_spots": occupied}).Error
}

type OccupancyTotals struct {
	Lots     int64
	Occupied int64
	Total    int64
}

func (r *LotRepository) Totals(ctx context.Context) (OccupancyTotals, error) {
	var out OccupancyTotals
	err := r.db.WithContext(ctx).Model(&lotModel{}).
		Select("COUNT(*) AS lots, COALESCE(SUM(occupied_spots), 0) AS occupied, COALESCE(SUM(total_spots), 0) AS total").
		Scan(&out).Error
	return out, err
}

// ExistsNear reports whether a live lot sits within tol degrees of (lat, lon).
func (r *LotRepository) ExistsNear(ctx context.Context, lat, lon, tol float64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&lotModel{}).
		Where("lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?", lat-tol, lat+tol, lon-tol, lon+tol).
		Count(&n).Error
	return n > 0, err
}
