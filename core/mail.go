package core

import "net/mail"

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		// simple text/plain content; the app sends no HTML mail
		TextContent string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)
