package session

import "parkease/internal/pkg/apperr"

var (
	ErrSessionNotFound         = apperr.New(apperr.ErrNotFound, "SESSION_NOT_FOUND", "Parking session not found")
	ErrSessionAlreadyCompleted = apperr.New(apperr.ErrConflict, "SESSION_ALREADY_COMPLETED", "Parking session is already closed")
	ErrAlreadyParked           = apperr.New(apperr.ErrConflict, "ALREADY_PARKED", "You already have an active parking session")
	ErrInvalidVehicleType      = apperr.New(apperr.ErrValidation, "INVALID_VEHICLE_TYPE", "Vehicle type must be car or bike")
	ErrVehicleNotAccepted      = apperr.New(apperr.ErrValidation, "INVALID_VEHICLE_TYPE", "This lot does not accept the vehicle type")
	ErrForbidden               = apperr.New(apperr.ErrForbidden, "FORBIDDEN", "You can only manage your own parking sessions")
)
