package mail

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender sends one plain-text message.
type Sender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type SendGridClient struct {
	apiKey string
}

func NewSendGridClient(apiKey string) *SendGridClient {
	return &SendGridClient{apiKey: apiKey}
}

func (c *SendGridClient) Send(ctx context.Context, from, to, subject, body string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if from == "" {
		return fmt.Errorf("from address is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail("Gigante Fleur", from),
		subject,
		sgmail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", html.EscapeString(body)),
	)

	response, err := sendgrid.NewSendClient(c.apiKey).SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	log.Printf("[sendgrid] mail sent: status=%d to=%s subject=%s", response.StatusCode, to, subject)
	return nil
}
