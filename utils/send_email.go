package utils

import (
	"fmt"
	"net/smtp"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Email    string
	Password string
}

// Mailer sends HTML mail through an authenticated SMTP relay.
type Mailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

func (m *Mailer) Configured() bool {
	return m != nil && m.cfg.Email != "" && m.cfg.Password != ""
}

func BuildMessage(from, to, subject, body string) []byte {
	msg := ""
	msg += "MIME-Version: 1.0\r\n"
	msg += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	msg += fmt.Sprintf("From: %s\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "\r\n" + body
	return []byte(msg)
}

func (m *Mailer) SendEmail(to, subject, body string) error {
	err := m.send(
		m.cfg.Host+":"+m.cfg.Port,
		smtp.PlainAuth("", m.cfg.Email, m.cfg.Password, m.cfg.Host),
		m.cfg.Email,
		[]string{to},
		BuildMessage(m.cfg.Email, to, subject, body),
	)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
