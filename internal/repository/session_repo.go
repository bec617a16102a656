package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"parkease/internal/domain"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionModel struct {
	ID          int64      `gorm:"column:id;primaryKey"`
	UserID      int64      `gorm:"column:user_id;not null;index:idx_parking_sessions_active_user,unique,where:status = 'active'"`
	LotID       int64      `gorm:"column:lot_id;not null;index"`
	VehicleType string     `gorm:"column:vehicle_type;size:10;not null"`
	StartTime   time.Time  `gorm:"column:start_time;not null"`
	EndTime     *time.Time `gorm:"column:end_time;index"`
	Status      string     `gorm:"column:status;size:20;not null;index"`
	TotalAmount int64      `gorm:"column:total_amount;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;index"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`

	Lot  *lotModel  `gorm:"foreignKey:LotID"`
	User *userModel `gorm:"foreignKey:UserID"`
}

func (sessionModel) TableName() string { return "parking_sessions" }

func toDomainSession(m sessionModel) *domain.Session {
	s := &domain.Session{
		ID:          m.ID,
		UserID:      m.UserID,
		LotID:       m.LotID,
		VehicleType: domain.VehicleType(m.VehicleType),
		StartTime:   m.StartTime.UTC(),
		Status:      domain.SessionStatus(m.Status),
		TotalAmount: m.TotalAmount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.EndTime != nil {
		end := m.EndTime.UTC()
		s.EndTime = &end
	}
	if m.Lot != nil {
		s.Lot = toDomainLot(*m.Lot)
	}
	if m.User != nil {
		s.User = toDomainUser(*m.User)
	}
	return s
}

func toSessionModel(s *domain.Session) sessionModel {
	m := sessionModel{
		ID:          s.ID,
		UserID:      s.UserID,
		LotID:       s.LotID,
		VehicleType: string(s.VehicleType),
		StartTime:   domain.StoredTime(s.StartTime),
		Status:      string(s.Status),
		TotalAmount: s.TotalAmount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.EndTime != nil {
		end := domain.StoredTime(*s.EndTime)
		m.EndTime = &end
	}
	return m
}

// withLot preloads the lot even if it was soft deleted later.
func withLot(db *gorm.DB) *gorm.DB {
	return db.Preload("Lot", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() })
}

// Create inserts s. A second active session for the same user fails with
// ErrDuplicate through the partial unique index.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	m := toSessionModel(s)
	tx := r.db.WithContext(ctx).Omit("Lot", "User").Create(&m)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	*s = *toDomainSession(m)
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	var m sessionModel
	tx := withLot(r.db.WithContext(ctx)).First(&m, id)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainSession(m), nil
}

func (r *SessionRepository) GetActiveByUser(ctx context.Context, userID int64) (*domain.Session, error) {
	var m sessionModel
	tx := withLot(r.db.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, string(domain.SessionActive)).
		First(&m)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	return toDomainSession(m), nil
}

// Finish moves an active session to a terminal status. It reports false when
// the session was no longer active, so concurrent finishes have one winner.
func (r *SessionRepository) Finish(ctx context.Context, id int64, status domain.SessionStatus, end time.Time, amount int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND status = ?", id, string(domain.SessionActive)).
		Updates(map[string]any{
			"status":       string(status),
			"end_time":     domain.StoredTime(end),
			"total_amount": amount,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// Reopen undoes Finish for a session still in status from.
func (r *SessionRepository) Reopen(ctx context.Context, id int64, from domain.SessionStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":       string(domain.SessionActive),
			"end_time":     gorm.Expr("NULL"),
			"total_amount": 0,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Session, error) {
	var rows []sessionModel
	err := withLot(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSessions(rows), nil
}

// Recent returns the newest sessions across all users with lot and user.
func (r *SessionRepository) Recent(ctx context.Context, limit int) ([]domain.Session, error) {
	var rows []sessionModel
	err := withLot(r.db.WithContext(ctx)).
		Preload("User").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSessions(rows), nil
}

// SumRevenue totals completed sessions, optionally windowed on end time.
func (r *SessionRepository) SumRevenue(ctx context.Context, from, to *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("status = ?", string(domain.SessionCompleted))
	if from != nil {
		q = q.Where("end_time >= ?", domain.StoredTime(*from))
	}
	if to != nil {
		q = q.Where("end_time < ?", domain.StoredTime(*to))
	}

	var total int64
	if err := q.Select("COALESCE(SUM(total_amount), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *SessionRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("status = ?", string(domain.SessionActive)).
		Count(&n).Error
	return n, err
}

// CompletedSince lists completed sessions that ended at or after since.
func (r *SessionRepository) CompletedSince(ctx context.Context, since time.Time) ([]domain.Session, error) {
	var rows []sessionModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time >= ?", string(domain.SessionCompleted), domain.StoredTime(since)).
		Order("end_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainSessions(rows), nil
}

// ActiveCountsByLot counts active sessions per lot id.
func (r *SessionRepository) ActiveCountsByLot(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		LotID int64
		N     int
	}
	err := r.db.WithContext(ctx).Model(&sessionModel{}).
		Select("lot_id, COUNT(*) AS n").
		Where("status = ?", string(domain.SessionActive)).
		Group("lot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.LotID] = row.N
	}
	return out, nil
}

func toDomainSessions(rows []sessionModel) []domain.Session {
	out := make([]domain.Session, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainSession(m))
	}
	return out
}
