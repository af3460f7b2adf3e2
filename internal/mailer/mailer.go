package mailer

import (
	"fmt"
	"html"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Mailer sends account emails
type Mailer interface {
	SendPasswordReset(toEmail, link string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP returns a gomail-backed mailer
func NewSMTP(host string, port int, username, password, from string) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpMailer) SendPasswordReset(toEmail, link string) error {
	m := resetMessage(s.from, toEmail, link)
	if err := s.dialer.DialAndSend(m); err != nil {
		log.Error().Err(err).Str("to", toEmail).Msg("password reset mail failed")
		return fmt.Errorf("send reset mail: %w", err)
	}
	log.Info().Str("to", toEmail).Msg("password reset mail sent")
	return nil
}

func resetMessage(from, to, link string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Restablece tu contraseña - KrostyShop")

	escaped := html.EscapeString(link)
	m.SetBody("text/plain", "Para restablecer tu contraseña abre este enlace:\n\n"+link+"\n")
	m.AddAlternative("text/html", fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Restablecer contraseña</h2>
			<p>Recibimos una solicitud para restablecer tu contraseña.</p>
			<a href="%s" style="background-color: #7c3aed; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Restablecer</a>
			<p>Si no fuiste tú, ignora este correo.</p>
		</div>
	`, escaped))
	return m
}

// logMailer is used when SMTP is not configured
type logMailer struct{}

// NewLog returns a mailer that only logs, for local development
func NewLog() Mailer { return logMailer{} }

func (logMailer) SendPasswordReset(toEmail, link string) error {
	log.Warn().Str("to", toEmail).Str("link", link).Msg("SMTP not configured; password reset link not mailed")
	return nil
}
