package mailer

import (
	"time"

	"github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// WelcomeMessage renders the greeting sent after registration.
func WelcomeMessage(appName, username, email string, joinedAt time.Time) (Message, error) {
	subject, text, html, err := templates.Render(templates.Welcome, templates.WelcomeData{
		AppName:  appName,
		Username: username,
		Email:    email,
		JoinedAt: joinedAt,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: subject, Text: text, HTML: html}, nil
}
