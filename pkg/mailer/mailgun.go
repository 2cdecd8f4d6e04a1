package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

// Mailgun wraps Mailgun client configuration.
type Mailgun struct {
	Domain  string
	APIKey  string
	Sender  string
	APIBase string // optional, e.g. https://api.eu.mailgun.net/v3
}

func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender, APIBase: apiBase}
}

// Send delivers msg through the Mailgun API. HTML is optional.
func (m *Mailgun) Send(ctx context.Context, msg Message) error {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	if m.APIBase != "" {
		client.SetAPIBase(m.APIBase)
	}
	out := client.NewMessage(m.Sender, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		out.SetHtml(msg.HTML)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := client.Send(c, out)
	return err
}
