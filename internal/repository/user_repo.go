package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"parkease/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID                     int64      `gorm:"column:id;primaryKey"`
	Username               string     `gorm:"column:username;size:30;not null"`
	Email                  string     `gorm:"column:email;size:255;not null;uniqueIndex"`
	PasswordHash           string     `gorm:"column:password_hash;not null"`
	Role                   string     `gorm:"column:role;size:20;not null;default:driver;index"`
	PhotoURL               *string    `gorm:"column:photo_url"`
	PasswordResetHash      *string    `gorm:"column:password_reset_hash;index"`
	PasswordResetExpiresAt *time.Time `gorm:"column:password_reset_expires_at"`
	CreatedAt              time.Time  `gorm:"column:created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	var photo, resetHash string
	if m.PhotoURL != nil {
		photo = *m.PhotoURL
	}
	if m.PasswordResetHash != nil {
		resetHash = *m.PasswordResetHash
	}

	return &domain.User{
		ID:                     m.ID,
		Username:               m.Username,
		Email:                  m.Email,
		PasswordHash:           m.PasswordHash,
		Role:                   domain.UserRole(m.Role),
		PhotoURL:               photo,
		PasswordResetHash:      resetHash,
		PasswordResetExpiresAt: m.PasswordResetExpiresAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	email := strings.TrimSpace(strings.ToLower(u.Email))

	var photo, resetHash *string
	if u.PhotoURL != "" {
		v := u.PhotoURL
		photo = &v
	}
	if u.PasswordResetHash != "" {
		v := u.PasswordResetHash
		resetHash = &v
	}

	return userModel{
		ID:                     u.ID,
		Username:               strings.TrimSpace(u.Username),
		Email:                  email,
		PasswordHash:           u.PasswordHash,
		Role:                   string(u.Role),
		PhotoURL:               photo,
		PasswordResetHash:      resetHash,
		PasswordResetExpiresAt: u.PasswordResetExpiresAt,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainUser(m), nil
}

// GetByResetHash finds the user holding an unexpired reset token hash.
func (r *UserRepository) GetByResetHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("password_reset_hash = ? AND password_reset_expires_at > ?", hash, now).
		First(&m)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainUser(m), nil
}

type ProfilePatch struct {
	Username *string
	PhotoURL *string
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, p ProfilePatch) error {
	updates := map[string]any{}
	if p.Username != nil {
		updates["username"] = strings.TrimSpace(*p.Username)
	}
	if p.PhotoURL != nil {
		updates["photo_url"] = *p.PhotoURL
	}
	if len(updates) == 0 {
		return nil
	}

	tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id int64, hash string, expiresAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(map[string]any{
		"password_reset_hash":       hash,
		"password_reset_expires_at": expiresAt,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPassword stores the new hash and clears any pending reset token.
func (r *UserRepository) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":             passwordHash,
		"password_reset_hash":       gorm.Expr("NULL"),
		"password_reset_expires_at": gorm.Expr("NULL"),
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role domain.UserRole) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userModel{}).Where("role = ?", string(role)).Count(&n).Error
	return n, err
}
