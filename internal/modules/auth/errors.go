package auth

import "parkease/internal/pkg/apperr"

var (
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrEmailAlreadyExists = apperr.New(apperr.ErrConflict, "EMAIL_EXISTS", "This email is already registered")
	ErrUserNotFound       = apperr.New(apperr.ErrNotFound, "USER_NOT_FOUND", "User not found")
	ErrInvalidResetToken  = apperr.New(apperr.ErrValidation, "INVALID_RESET_TOKEN", "Reset link is invalid or has expired")
)
