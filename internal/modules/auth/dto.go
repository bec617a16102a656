package auth

import (
	"io"
	"time"

	"parkease/internal/domain"
)

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileUpdate carries the multipart profile form. Nil fields are left as is.
type ProfileUpdate struct {
	Username  *string   `json:"username" validate:"omitempty,min=3,max=30"`
	Photo     io.Reader `json:"-"`
	PhotoName string    `json:"-"`
}

type UserView struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	PhotoURL  string          `json:"photo_url"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewUserView(u *domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		PhotoURL:  u.PhotoURL,
		CreatedAt: u.CreatedAt,
	}
}

type AuthResult struct {
	User  *domain.User
	Token string
}
