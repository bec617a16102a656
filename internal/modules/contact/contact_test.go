package contact

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/mailer"
	"parkease/internal/pkg/apperr"
)

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestService_Send(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, "support@parkease.local")

	err := svc.Send(context.Background(), MessageRequest{
		Name: "Asha", Email: "asha@example.com", Subject: "Wrong bill", Message: "I was charged twice.",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "support@parkease.local", msg.To)
	assert.Equal(t, "asha@example.com", msg.ReplyTo)
	assert.Equal(t, "Contact Form: Wrong bill", msg.Subject)
	assert.Contains(t, msg.Body, "I was charged twice.")
}

func TestService_Send_MissingFields(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, "support@parkease.local")

	err := svc.Send(context.Background(), MessageRequest{Name: "Asha", Email: "asha@example.com", Subject: "  "})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["subject"])
	assert.Equal(t, "required", verr.Fields["message"])
	assert.Empty(t, sender.sent)
}

func TestHandler_Send(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		sendErr    error
		body       string
		wantStatus int
	}{
		{"ok", nil, `{"name":"A","email":"a@example.com","subject":"Hi","message":"Hello"}`, http.StatusOK},
		{"invalid", nil, `{"name":"A"}`, http.StatusBadRequest},
		{"smtp down", errors.New("dial tcp: refused"), `{"name":"A","email":"a@example.com","subject":"Hi","message":"Hello"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHandler(NewService(&fakeSender{err: tt.sendErr}, "support@parkease.local")).RegisterRoutes(r.Group("/api/v1"))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
