package domain

import "time"

type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleBike VehicleType = "bike"
	// VehicleBoth is only valid on lots.
	VehicleBoth VehicleType = "both"
)

func (v VehicleType) IsParkable() bool {
	return v == VehicleCar || v == VehicleBike
}

func (v VehicleType) IsLotType() bool {
	return v == VehicleCar || v == VehicleBike || v == VehicleBoth
}

type LotStatus string

const (
	LotAvailable LotStatus = "available"
	LotFull      LotStatus = "full"
)

type Lot struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Lat           float64     `json:"lat"`
	Lon           float64     `json:"lon"`
	PricePerHour  float64     `json:"price_per_hour"`
	TotalSpots    int         `json:"total_spots"`
	OccupiedSpots int         `json:"occupied_spots"`
	VehicleType   VehicleType `json:"vehicle_type"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Status is derived from occupancy and never stored.
func (l *Lot) Status() LotStatus {
	if l.OccupiedSpots < l.TotalSpots {
		return LotAvailable
	}
	return LotFull
}

func (l *Lot) FreeSpots() int {
	if free := l.TotalSpots - l.OccupiedSpots; free > 0 {
		return free
	}
	return 0
}

// Accepts reports whether a vehicle of type v may park here.
func (l *Lot) Accepts(v VehicleType) bool {
	return l.VehicleType == VehicleBoth || l.VehicleType == v
}
