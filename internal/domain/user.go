package domain

import "time"

type UserRole string

const (
	RoleDriver UserRole = "driver"
	RoleAdmin  UserRole = "admin"
)

const DefaultPhotoURL = "https://api.dicebear.com/7.x/initials/svg?seed=John%20Doe"

type User struct {
	ID                     int64      `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"-"`
	Role                   UserRole   `json:"role"`
	PhotoURL               string     `json:"photo_url"`
	PasswordResetHash      string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}
