package lot

import (
	"context"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type LotRepository interface {
	Create(ctx context.Context, l *domain.Lot) error
	GetByID(ctx context.Context, id int64) (*domain.Lot, error)
	List(ctx context.Context, f repository.LotFilter) ([]domain.Lot, error)
	IncrementOccupied(ctx context.Context, id int64) (bool, error)
	DecrementOccupied(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, id int64, p repository.LotPatch) (bool, error)
	DeleteIfIdle(ctx context.Context, id int64) (bool, error)
	SetOccupied(ctx context.Context, id int64, occupied int) error
}

// ActiveSessionCounter is the slice of the session store Reconcile needs.
type ActiveSessionCounter interface {
	ActiveCountsByLot(ctx context.Context) (map[int64]int, error)
}

// CachePurger drops cached lot listings after admin writes.
type CachePurger interface {
	Purge(ctx context.Context) error
}
