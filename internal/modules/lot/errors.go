package lot

import "parkease/internal/pkg/apperr"

var (
	ErrLotNotFound            = apperr.New(apperr.ErrNotFound, "LOT_NOT_FOUND", "Parking lot not found")
	ErrLotFull                = apperr.New(apperr.ErrConflict, "LOT_FULL", "Parking lot is full")
	ErrLotInUse               = apperr.New(apperr.ErrConflict, "LOT_IN_USE", "Parking lot has active sessions")
	ErrCapacityBelowOccupancy = apperr.New(apperr.ErrConflict, "CAPACITY_BELOW_OCCUPANCY", "Total spots cannot be lower than occupied spots")
	ErrNoLotAvailable         = apperr.New(apperr.ErrNotFound, "NO_LOT_AVAILABLE", "No parking lot with free spots found")
)
