package lot

import (
	"time"

	"parkease/internal/domain"
)

// Numeric fields are pointers so a missing value is told apart from zero.
type CreateLotRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Lat          *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon          *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	PricePerHour *float64 `json:"price_per_hour" validate:"required,gte=0"`
	TotalSpots   *int     `json:"total_spots" validate:"required,gt=0"`
	VehicleType  string   `json:"vehicle_type" validate:"omitempty,oneof=car bike both"`
}

// UpdateLotRequest is a patch; nil fields are left untouched.
type UpdateLotRequest struct {
	Name         *string  `json:"name" validate:"omitnil,min=1,max=200"`
	Lat          *float64 `json:"lat" validate:"omitnil,gte=-90,lte=90"`
	Lon          *float64 `json:"lon" validate:"omitnil,gte=-180,lte=180"`
	PricePerHour *float64 `json:"price_per_hour" validate:"omitnil,gte=0"`
	TotalSpots   *int     `json:"total_spots" validate:"omitnil,gt=0"`
	VehicleType  *string  `json:"vehicle_type" validate:"omitnil,oneof=car bike both"`
}

type ListLotsQuery struct {
	Lat           *float64 `form:"lat" validate:"omitnil,gte=-90,lte=90"`
	Lon           *float64 `form:"lon" validate:"omitnil,gte=-180,lte=180"`
	RadiusKm      *float64 `form:"radius_km" validate:"omitnil,gt=0"`
	VehicleType   string   `form:"vehicle_type" validate:"omitempty,oneof=car bike both"`
	AvailableOnly bool     `form:"available_only"`
	Limit         int      `form:"limit" validate:"gte=0,lte=500"`
}

type NearestQuery struct {
	Lat         *float64 `form:"lat" validate:"required,gte=-90,lte=90"`
	Lon         *float64 `form:"lon" validate:"required,gte=-180,lte=180"`
	VehicleType string   `form:"vehicle_type" validate:"omitempty,oneof=car bike"`
}

type LotView struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Lat           float64            `json:"lat"`
	Lon           float64            `json:"lon"`
	PricePerHour  float64            `json:"price_per_hour"`
	TotalSpots    int                `json:"total_spots"`
	OccupiedSpots int                `json:"occupied_spots"`
	FreeSpots     int                `json:"free_spots"`
	VehicleType   domain.VehicleType `json:"vehicle_type"`
	Status        domain.LotStatus   `json:"status"`
	DistanceKm    *float64           `json:"distance_km,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func NewLotView(l *domain.Lot) LotView {
	return LotView{
		ID:            l.ID,
		Name:          l.Name,
		Lat:           l.Lat,
		Lon:           l.Lon,
		PricePerHour:  l.PricePerHour,
		TotalSpots:    l.TotalSpots,
		OccupiedSpots: l.OccupiedSpots,
		FreeSpots:     l.FreeSpots(),
		VehicleType:   l.VehicleType,
		Status:        l.Status(),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

type Correction struct {
	LotID    int64  `json:"lot_id"`
	Name     string `json:"name"`
	Recorded int    `json:"recorded"`
	Actual   int    `json:"actual"`
}
