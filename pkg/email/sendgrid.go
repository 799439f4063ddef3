package email

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers messages through the SendGrid v3 mail API.
type SendGridSender struct {
	key  string
	host string
	from *sgmail.Email
	api  func(ctx context.Context, request rest.Request) (*rest.Response, error)
}

// NewSendGridSender builds a sender authenticated with key.
func NewSendGridSender(key string, from mail.Address) *SendGridSender {
	return &SendGridSender{
		key:  key,
		host: sendGridHost,
		from: sgmail.NewEmail(from.Name, from.Address),
		api:  rest.SendWithContext,
	}
}

// Send posts one message. The request is bound to ctx, so cancelling it
// aborts an in-flight send. Responses with a status of 400 or above are errors.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	to := sgmail.NewEmail(msg.To.Name, msg.To.Address)
	m := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.Text, msg.HTML)

	req := sendgrid.GetRequest(s.key, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := s.api(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", msg.To.Address, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send to %s: status %d: %s", msg.To.Address, res.StatusCode, res.Body)
	}
	return nil
}
