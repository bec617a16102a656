package session

import (
	"context"
	"time"

	"parkease/internal/domain"
)

// LotRegistry is the occupancy side of the lot module.
type LotRegistry interface {
	Get(ctx context.Context, id int64) (*domain.Lot, error)
	ReserveSpot(ctx context.Context, lotID int64) error
	ReleaseSpot(ctx context.Context, lotID int64) error
}

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	GetActiveByUser(ctx context.Context, userID int64) (*domain.Session, error)
	Finish(ctx context.Context, id int64, status domain.SessionStatus, end time.Time, amount int64) (bool, error)
	Reopen(ctx context.Context, id int64, from domain.SessionStatus) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Session, error)
}

// CachePurger drops cached lot listings after occupancy changes.
type CachePurger interface {
	Purge(ctx context.Context) error
}
