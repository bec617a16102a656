package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/pkg/apperr"
)

func TestCompose_StripsHeaderInjection(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := string(Compose("ParkEase <no-reply@parkease.local>", Message{
		To:      "driver@example.com",
		ReplyTo: "user@example.com\r\nBcc: victim@example.com",
		Subject: "Receipt",
		Body:    "line1\nline2",
	}, now))

	assert.Contains(t, raw, "Reply-To: user@example.com  Bcc: victim@example.com\r\n")
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline1\r\nline2"))
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "ParkEase <no-reply@parkease.local>"})

	var gotAddr, gotFrom string
	var gotTo []string
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "driver@example.com", Subject: "Hi", Body: "x"}))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "no-reply@parkease.local", gotFrom)
	assert.Equal(t, []string{"driver@example.com"}, gotTo)

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }
	err := s.Send(context.Background(), Message{To: "driver@example.com"})
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	assert.Error(t, s.Send(context.Background(), Message{To: " "}))
}
