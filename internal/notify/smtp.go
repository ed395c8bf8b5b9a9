package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// EmailSender entrega un email ya renderizado.
type EmailSender interface {
	SendEmail(ctx context.Context, from, to string, r Rendered) error
}

// SMTPSender implementa EmailSender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

func (s *SMTPSender) message(from, to string, r Rendered) *mail.Message {
	if from == "" {
		from = s.From
	}
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", r.Subject)

	// multipart/alternative (txt + html)
	if r.Text != "" {
		m.SetBody("text/plain", r.Text)
	}
	if r.HTML != "" {
		if r.Text == "" {
			m.SetBody("text/html", r.HTML)
		} else {
			m.AddAlternative("text/html", r.HTML)
		}
	}
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default: // auto
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return d
}

// SendEmail respeta el deadline de ctx; go-mail no es cancelable, el envío
// sigue en background si el contexto vence.
func (s *SMTPSender) SendEmail(ctx context.Context, from, to string, r Rendered) error {
	log := logger.From(ctx).With(
		logger.Component("smtp"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.Email(to),
	)

	m := s.message(from, to, r)
	done := make(chan error, 1)
	go func() { done <- s.dialer().DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			log.Error("smtp send failed", logger.Err(err))
			return fmt.Errorf("smtp send: %w", err)
		}
	case <-ctx.Done():
		log.Warn("smtp send timed out")
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
	log.Debug("email sent", logger.String("subject", r.Subject))
	return nil
}
