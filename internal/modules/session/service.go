package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"parkease/internal/domain"
	"parkease/internal/events"
	"parkease/internal/modules/billing"
	"parkease/internal/pkg/apperr"
	"parkease/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	publishTimeout      = 3 * time.Second
)

type Service struct {
	sessions SessionRepository
	lots     LotRegistry
	events   events.Publisher
	now      func() time.Time
}

func NewService(sessions SessionRepository, lots LotRegistry, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		sessions: sessions,
		lots:     lots,
		events:   publisher,
		now:      time.Now,
	}
}

// Start parks userID's vehicle in a lot. The spot is reserved first and
// handed back if the session row cannot be written.
func (s *Service) Start(ctx context.Context, userID int64, req StartSessionRequest) (*domain.Session, error) {
	vt := domain.VehicleType(req.VehicleType)
	if !vt.IsParkable() {
		return nil, ErrInvalidVehicleType
	}
	if req.LotID <= 0 {
		return nil, apperr.InvalidField("lot_id", "required")
	}

	if _, found, err := s.GetActive(ctx, userID); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyParked
	}

	lot, err := s.lots.Get(ctx, req.LotID)
	if err != nil {
		return nil, err
	}
	if !lot.Accepts(vt) {
		return nil, ErrVehicleNotAccepted
	}

	if err := s.lots.ReserveSpot(ctx, lot.ID); err != nil {
		return nil, err
	}

	sess := &domain.Session{
		UserID:      userID,
		LotID:       lot.ID,
		VehicleType: vt,
		StartTime:   domain.StoredTime(s.now()),
		Status:      domain.SessionActive,
		TotalAmount: 0,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if relErr := s.lots.ReleaseSpot(context.WithoutCancel(ctx), lot.ID); relErr != nil {
			return nil, s.integrityFailure(ctx, "start_session", sess, err, relErr)
		}
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyParked
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.Lot = lot

	log.Printf("session_started session_id=%d user_id=%d lot_id=%d vehicle=%s", sess.ID, userID, lot.ID, vt)
	s.publish(ctx, events.SessionStarted, sess)
	return sess, nil
}

// GetActive returns the user's open session; found is false when there is none.
func (s *Service) GetActive(ctx context.Context, userID int64) (*domain.Session, bool, error) {
	sess, err := s.sessions.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get active session: %w", err)
	}
	return sess, true, nil
}

// LiveQuote prices the user's open session as of now without storing anything.
func (s *Service) LiveQuote(ctx context.Context, userID int64) (*LiveSession, bool, error) {
	sess, found, err := s.GetActive(ctx, userID)
	if err != nil || !found {
		return nil, found, err
	}

	price, err := s.priceFor(ctx, sess)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	if now.Before(sess.StartTime) {
		now = sess.StartTime
	}
	q, err := billing.Project(sess.StartTime, now, price)
	if err != nil {
		return nil, false, err
	}
	return &LiveSession{Session: NewSessionView(sess), Quote: q}, true, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Checkout closes a session at now and bills it at the lot's current rate.
func (s *Service) Checkout(ctx context.Context, sessionID int64) (*domain.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, sess, domain.SessionCompleted)
}

// CheckoutAs is Checkout on behalf of an actor: drivers may only close
// their own sessions, admins any.
func (s *Service) CheckoutAs(ctx context.Context, sessionID, actorID int64, role domain.UserRole) (*domain.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleAdmin && sess.UserID != actorID {
		return nil, ErrForbidden
	}
	return s.close(ctx, sess, domain.SessionCompleted)
}

// Cancel voids a session without charge.
func (s *Service) Cancel(ctx context.Context, sessionID int64) (*domain.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.close(ctx, sess, domain.SessionCancelled)
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	list, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// close moves sess to a terminal status and frees its spot. If the spot
// cannot be freed the session is reopened so the counter and the ledger
// keep agreeing.
func (s *Service) close(ctx context.Context, sess *domain.Session, status domain.SessionStatus) (*domain.Session, error) {
	if sess.Status != domain.SessionActive {
		return nil, ErrSessionAlreadyCompleted
	}

	end := domain.StoredTime(s.now())
	if end.Before(sess.StartTime) {
		log.Printf("clock_skew session_id=%d start=%s now=%s", sess.ID, sess.StartTime.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano))
		end = sess.StartTime
	}

	var amount int64
	if status == domain.SessionCompleted {
		price, err := s.priceFor(ctx, sess)
		if err != nil {
			return nil, err
		}
		elapsed, err := billing.Elapsed(sess.StartTime, end)
		if err != nil {
			return nil, err
		}
		amount = billing.AmountFor(elapsed, price)
	}

	ok, err := s.sessions.Finish(ctx, sess.ID, status, end, amount)
	if err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}
	if !ok {
		return nil, ErrSessionAlreadyCompleted
	}

	bg := context.WithoutCancel(ctx)
	if relErr := s.lots.ReleaseSpot(bg, sess.LotID); relErr != nil {
		reopened, reErr := s.sessions.Reopen(bg, sess.ID, status)
		if reErr == nil && !reopened {
			reErr = errors.New("session changed before it could be reopened")
		}
		if reErr != nil {
			return nil, s.integrityFailure(ctx, "close_session", sess, relErr, reErr)
		}
		return nil, fmt.Errorf("release spot: %w", relErr)
	}

	sess.Status = status
	sess.EndTime = &end
	sess.TotalAmount = amount

	log.Printf("session_closed session_id=%d user_id=%d lot_id=%d status=%s amount=%d", sess.ID, sess.UserID, sess.LotID, status, amount)
	if status == domain.SessionCompleted {
		s.publish(ctx, events.SessionCompleted, sess)
	} else {
		s.publish(ctx, events.SessionCancelled, sess)
	}
	return sess, nil
}

func (s *Service) priceFor(ctx context.Context, sess *domain.Session) (float64, error) {
	if sess.Lot != nil {
		return sess.Lot.PricePerHour, nil
	}
	lot, err := s.lots.Get(ctx, sess.LotID)
	if err != nil {
		return 0, err
	}
	sess.Lot = lot
	return lot.PricePerHour, nil
}

func (s *Service) integrityFailure(ctx context.Context, op string, sess *domain.Session, cause, compensation error) error {
	log.Printf("ALERT integrity_failure op=%s session_id=%d user_id=%d lot_id=%d cause=%q compensation=%q",
		op, sess.ID, sess.UserID, sess.LotID, cause.Error(), compensation.Error())

	e := events.New(events.IntegrityFailure, payload(sess), s.now())
	e.Reason = fmt.Sprintf("%s: %v; compensation failed: %v", op, cause, compensation)
	s.send(ctx, e)

	return apperr.Integrity(op, cause, compensation)
}

func (s *Service) publish(ctx context.Context, t events.Type, sess *domain.Session) {
	s.send(ctx, events.New(t, payload(sess), s.now()))
}

func (s *Service) send(ctx context.Context, e events.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, e); err != nil {
		log.Printf("event_publish_failed type=%s session_id=%d error=%q", e.Type, e.Session.SessionID, err.Error())
	}
}

func payload(sess *domain.Session) events.SessionPayload {
	start := sess.StartTime
	p := events.SessionPayload{
		SessionID:   sess.ID,
		UserID:      sess.UserID,
		LotID:       sess.LotID,
		VehicleType: string(sess.VehicleType),
		StartTime:   &start,
		EndTime:     sess.EndTime,
		TotalAmount: sess.TotalAmount,
	}
	if sess.Lot != nil {
		p.LotName = sess.Lot.Name
	}
	return p
}
