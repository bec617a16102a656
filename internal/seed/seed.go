// Package seed loads well-known Nepal parking locations and an initial
// administrator.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

// ProximityTolerance is in degrees on both axes.
const ProximityTolerance = 0.001

type LotStore interface {
	ExistsNear(ctx context.Context, lat, lon, tol float64) (bool, error)
	Create(ctx context.Context, l *domain.Lot) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type KnownLot struct {
	Name         string
	Lat          float64
	Lon          float64
	PricePerHour float64
	TotalSpots   int
	VehicleType  domain.VehicleType
}

var KnownLots = []KnownLot{
	// Kathmandu valley
	{"Kalimati Market Area", 27.6981, 85.2974, 30, 40, domain.VehicleBoth},
	{"New Road Gate", 27.7042, 85.3117, 50, 25, domain.VehicleBike},
	{"Pashupatinath Area", 27.7104, 85.3487, 40, 100, domain.VehicleBoth},
	{"Koteshwor Junction", 27.6766, 85.3521, 30, 50, domain.VehicleBoth},
	{"Maharajgunj Chowk", 27.7371, 85.3331, 40, 60, domain.VehicleCar},
	{"Patan Hospital Area", 27.6684, 85.3201, 30, 80, domain.VehicleBoth},
	{"Bhaktapur Durbar Square Ent.", 27.6722, 85.4277, 40, 120, domain.VehicleBoth},
	// Pokhara
	{"Pokhara Airport Area", 28.1995, 83.9856, 50, 150, domain.VehicleCar},
	{"Prithvi Chowk Pokhara", 28.2091, 83.9918, 30, 100, domain.VehicleBoth},
	{"Sarangkot Viewpoint", 28.2439, 83.9486, 40, 40, domain.VehicleBoth},
	// Chitwan
	{"Bharatpur Hospital Area", 27.6806, 84.4302, 20, 200, domain.VehicleBoth},
	{"Narayangarh Riverside", 27.7028, 84.4255, 30, 80, domain.VehicleBoth},
	{"Sauraha Tourist Bus Park", 27.5833, 84.4952, 40, 100, domain.VehicleCar},
	// Eastern
	{"Biratnagar Airport Parking", 26.4839, 87.2667, 50, 120, domain.VehicleCar},
	{"Itahari Main Chowk", 26.6647, 87.2719, 20, 150, domain.VehicleBoth},
	{"Dharan Bhanu Chowk", 26.8128, 87.2831, 25, 80, domain.VehicleBoth},
	// Western
	{"Butwal Traffic Chowk", 27.7006, 83.4484, 20, 120, domain.VehicleBoth},
	{"Lumbini Garden Gate", 27.4811, 83.2758, 50, 300, domain.VehicleBoth},
	{"Gautam Buddha Airport", 27.5083, 83.4158, 60, 250, domain.VehicleCar},
	{"Janakpurdham Temple Area", 26.7303, 85.9248, 30, 150, domain.VehicleBoth},
	{"Nepalgunj Birendra Chowk", 28.05, 81.6167, 25, 100, domain.VehicleBoth},
}

// Lots inserts every known lot that has no live lot nearby. New lots start
// empty. It returns the lots it created.
func Lots(ctx context.Context, store LotStore, known []KnownLot) ([]domain.Lot, error) {
	added := make([]domain.Lot, 0)
	for _, k := range known {
		exists, err := store.ExistsNear(ctx, k.Lat, k.Lon, ProximityTolerance)
		if err != nil {
			return added, fmt.Errorf("check %q: %w", k.Name, err)
		}
		if exists {
			continue
		}
		l := domain.Lot{
			Name:         k.Name,
			Lat:          k.Lat,
			Lon:          k.Lon,
			PricePerHour: k.PricePerHour,
			TotalSpots:   k.TotalSpots,
			VehicleType:  k.VehicleType,
		}
		if err := store.Create(ctx, &l); err != nil {
			return added, fmt.Errorf("create %q: %w", k.Name, err)
		}
		added = append(added, l)
	}
	log.Printf("seed_lots known=%d added=%d", len(known), len(added))
	return added, nil
}

// Admin creates an administrator unless the email is already taken.
// created is false when the account existed.
func Admin(ctx context.Context, store UserStore, username, email, password string) (created bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 6 {
		return false, errors.New("admin email and a password of at least 6 characters are required")
	}

	_, err = store.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		PhotoURL:     domain.DefaultPhotoURL,
	}
	if err := store.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
