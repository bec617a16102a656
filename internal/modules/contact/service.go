package contact

import (
	"context"
	"fmt"
	"log"
	"strings"

	"parkease/internal/mailer"
	"parkease/internal/pkg/apperr"
	"parkease/internal/pkg/validator"
)

var ErrDeliveryFailed = apperr.New(apperr.ErrUpstream, "MESSAGE_NOT_SENT", "Failed to send message. Please try again later.")

type MessageRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Service forwards contact form submissions to the support inbox.
type Service struct {
	mail    mailer.Sender
	support string
}

func NewService(mail mailer.Sender, supportEmail string) *Service {
	return &Service{mail: mail, support: supportEmail}
}

func (s *Service) Send(ctx context.Context, req MessageRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := validator.Check(req); err != nil {
		return err
	}

	msg := mailer.Message{
		To:      s.support,
		ReplyTo: req.Email,
		Subject: "Contact Form: " + req.Subject,
		Body: fmt.Sprintf("Name: %s\nEmail: %s\nSubject: %s\n\n%s\n",
			req.Name, req.Email, req.Subject, req.Message),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		log.Printf("contact_mail_failed reply_to=%s error=%q", req.Email, err.Error())
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
