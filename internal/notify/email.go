package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"potencialize/internal/models"
)

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink sends the first message of the membership welcome sequence.
type EmailSink struct {
	mailer   Mailer
	from     string
	product  string
	sequence int
}

func NewEmailSink(mailer Mailer, from, product string, sequence int) *EmailSink {
	if sequence <= 0 {
		sequence = 5
	}
	return &EmailSink{mailer: mailer, from: from, product: product, sequence: sequence}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Accepts(eventType string) bool {
	return eventType == models.EventMembershipActivated
}

func (s *EmailSink) Deliver(_ context.Context, e models.Event) error {
	to, _ := e.Payload["email"].(string)
	if to == "" {
		return nil
	}
	name, _ := e.Payload["user_name"].(string)
	company, _ := e.Payload["company"].(string)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Bem-vindo ao %s (1/%d)", s.product, s.sequence))
	m.SetBody("text/html", fmt.Sprintf(`
		<h2>Olá, %s!</h2>
		<p>A assinatura do <strong>%s</strong> para <strong>%s</strong> foi ativada.</p>
		<p>Este é o primeiro de %d e-mails da sua jornada de boas-vindas.</p>
		<p>Equipe Potencialize</p>
	`, name, s.product, company, s.sequence))

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}
