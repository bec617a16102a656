// Package notifier turns session events into emails: receipts for drivers
// and integrity alerts for the operator.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parkease/internal/domain"
	"parkease/internal/events"
	"parkease/internal/mailer"
	"parkease/internal/modules/billing"
	"parkease/internal/repository"
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier struct {
	users    UserLookup
	mail     mailer.Sender
	operator string
}

func New(users UserLookup, mail mailer.Sender, operator string) *Notifier {
	return &Notifier{users: users, mail: mail, operator: operator}
}

// Handle is an events.Handler. Events for deleted users are dropped.
func (n *Notifier) Handle(ctx context.Context, e events.Event) error {
	switch e.Type {
	case events.SessionCompleted:
		return n.toDriver(ctx, e, receipt)
	case events.SessionCancelled:
		return n.toDriver(ctx, e, cancellation)
	case events.IntegrityFailure:
		return n.alert(ctx, e)
	default:
		return nil
	}
}

func (n *Notifier) toDriver(ctx context.Context, e events.Event, compose func(*domain.User, events.Event) mailer.Message) error {
	u, err := n.users.GetByID(ctx, e.Session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("notifier_skip event_id=%s type=%s reason=user_not_found user_id=%d", e.ID, e.Type, e.Session.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user %d: %w", e.Session.UserID, err)
	}
	if err := n.mail.Send(ctx, compose(u, e)); err != nil {
		return err
	}
	log.Printf("notifier_sent event_id=%s type=%s to=%s", e.ID, e.Type, u.Email)
	return nil
}

func (n *Notifier) alert(ctx context.Context, e events.Event) error {
	if n.operator == "" {
		log.Printf("notifier_skip event_id=%s type=%s reason=no_operator_address", e.ID, e.Type)
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Integrity failure at %s\n\n", e.OccurredAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Reason: %s\n", e.Reason)
	fmt.Fprintf(&b, "Session: %d\nLot: %d\nUser: %d\n", e.Session.SessionID, e.Session.LotID, e.Session.UserID)
	b.WriteString("\nRun cmd/reconcile to repair lot occupancy.\n")

	return n.mail.Send(ctx, mailer.Message{
		To:      n.operator,
		Subject: "Parking integrity alert",
		Body:    b.String(),
	})
}

func receipt(u *domain.User, e events.Event) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", u.Username)
	fmt.Fprintf(&b, "Your parking session at %s has ended.\n\n", lotLabel(e.Session))
	if e.Session.StartTime != nil && e.Session.EndTime != nil {
		fmt.Fprintf(&b, "Start: %s\n", e.Session.StartTime.Format(time.RFC1123))
		fmt.Fprintf(&b, "End: %s\n", e.Session.EndTime.Format(time.RFC1123))
		fmt.Fprintf(&b, "Duration: %s\n", billing.Clock(e.Session.EndTime.Sub(*e.Session.StartTime)))
	}
	fmt.Fprintf(&b, "Vehicle: %s\n", e.Session.VehicleType)
	fmt.Fprintf(&b, "Total: Rs. %d\n\nThank you for parking with us.\n", e.Session.TotalAmount)

	return mailer.Message{
		To:      u.Email,
		Subject: fmt.Sprintf("Parking receipt #%d", e.Session.SessionID),
		Body:    b.String(),
	}
}

func cancellation(u *domain.User, e events.Event) mailer.Message {
	body := fmt.Sprintf("Hi %s,\n\nYour parking session at %s was cancelled by an administrator. No charge was made.\n",
		u.Username, lotLabel(e.Session))
	return mailer.Message{
		To:      u.Email,
		Subject: fmt.Sprintf("Parking session #%d cancelled", e.Session.SessionID),
		Body:    body,
	}
}

func lotLabel(p events.SessionPayload) string {
	if p.LotName != "" {
		return p.LotName
	}
	return fmt.Sprintf("lot #%d", p.LotID)
}
