package stats

import (
	"context"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type SessionReader interface {
	SumRevenue(ctx context.Context, from, to *time.Time) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]domain.Session, error)
	CompletedSince(ctx context.Context, since time.Time) ([]domain.Session, error)
}

type LotReader interface {
	Totals(ctx context.Context) (repository.OccupancyTotals, error)
}

type UserCounter interface {
	CountByRole(ctx context.Context, role domain.UserRole) (int64, error)
}
