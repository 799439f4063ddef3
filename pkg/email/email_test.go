package email

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogSenderRecordsMessages(t *testing.T) {
	sender := NewLogSender(zap.NewNop())

	err := sender.Send(context.Background(), Message{To: mail.Address{Name: "Ana", Address: "ana@example.com"}, Subject: "Hi"})
	require.NoError(t, err)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hi", sent[0].Subject)
}

func TestSendersRejectMissingAddress(t *testing.T) {
	assert.ErrorIs(t, NewLogSender(nil).Send(context.Background(), Message{}), ErrNoRecipient)
	assert.Error(t, NewLogSender(nil).Send(context.Background(), Message{To: mail.Address{Address: "not-an-email"}}))
}

func TestSendGridSenderPostsMail(t *testing.T) {
	sender := NewSendGridSender("key", mail.Address{Name: "ClubConnect", Address: "no-reply@example.com"})
	var captured rest.Request
	sender.api = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	err := sender.Send(context.Background(), Message{To: mail.Address{Address: "ana@example.com"}, Subject: "Cover", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, rest.Method(http.MethodPost), captured.Method)
	assert.Contains(t, string(captured.Body), "ana@example.com")
	assert.Equal(t, "Bearer key", captured.Headers["Authorization"])
}

func TestSendGridSenderSurfacesFailures(t *testing.T) {
	sender := NewSendGridSender("key", mail.Address{Address: "no-reply@example.com"})

	sender.api = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}
	assert.Error(t, sender.Send(context.Background(), Message{To: mail.Address{Address: "ana@example.com"}}))

	sender.api = func(ctx context.Context, req rest.Request) (*rest.Response, error) {
		return nil, errors.New("network down")
	}
	assert.Error(t, sender.Send(context.Background(), Message{To: mail.Address{Address: "ana@example.com"}}))
}

func TestSendGridSenderAbortsOnCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	sender := NewSendGridSender("key", mail.Address{Address: "no-reply@example.com"})
	sender.host = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	started := time.Now()
	err := sender.Send(ctx, Message{To: mail.Address{Address: "ana@example.com"}, Subject: "Cover", HTML: "<p>x</p>"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
}
