package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"parkease/internal/domain"
	"parkease/internal/mailer"
	"parkease/internal/pkg/validator"
	"parkease/internal/repository"
	"parkease/internal/upload"
)

type ResetOptions struct {
	TTL time.Duration
	// URL is the frontend page that receives ?token=.
	URL string
}

// Service contains all business logic for authentication and profiles.
type Service struct {
	users  UserRepository
	jwt    TokenIssuer
	mail   mailer.Sender
	photos upload.Store
	reset  ResetOptions
	now    func() time.Time
}

func NewService(users UserRepository, jwt TokenIssuer, mail mailer.Sender, photos upload.Store, reset ResetOptions) *Service {
	if reset.TTL <= 0 {
		reset.TTL = 15 * time.Minute
	}
	return &Service{
		users:  users,
		jwt:    jwt,
		mail:   mail,
		photos: photos,
		reset:  reset,
		now:    time.Now,
	}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		Role:         domain.RoleDriver,
		PhotoURL:     domain.DefaultPhotoURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile changes the username and/or stores a new photo.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*domain.User, error) {
	if upd.Username != nil {
		trimmed := strings.TrimSpace(*upd.Username)
		upd.Username = &trimmed
	}
	if err := validator.Check(upd); err != nil {
		return nil, err
	}

	patch := repository.ProfilePatch{Username: upd.Username}
	if upd.Photo != nil {
		photoURL, err := s.photos.Save(ctx, upd.PhotoName, upd.Photo)
		if err != nil {
			return nil, err
		}
		patch.PhotoURL = &photoURL
	}

	if err := s.users.UpdateProfile(ctx, userID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

// ForgotPassword emails a reset link when the address is registered. The
// result is the same either way so callers cannot probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validator.Check(req); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user by email: %w", err)
	}

	raw, hash, err := generateResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.reset.TTL)
	if err := s.users.SetPasswordReset(ctx, user.ID, hash, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := s.reset.URL + "?token=" + url.QueryEscape(raw)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your ParkEase password",
		Body: fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in %d minutes.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			user.Username, int(s.reset.TTL.Minutes()), link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		log.Printf("password_reset_mail_failed user_id=%d error=%q", user.ID, err.Error())
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	req.Token = strings.TrimSpace(req.Token)
	if err := validator.Check(req); err != nil {
		return err
	}

	user, err := s.users.GetByResetHash(ctx, hashToken(req.Token), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("get user by reset token: %w", err)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.users.ResetPassword(ctx, user.ID, hashed); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (s *Service) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateResetToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
