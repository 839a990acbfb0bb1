package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type DeliveryMethod string

const (
	DeliveryEmail DeliveryMethod = "email"
	DeliverySMS   DeliveryMethod = "sms"
)

// ParseDeliveryMethod accepts "email", "sms" and "phone"; empty means email.
func ParseDeliveryMethod(raw string) (DeliveryMethod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "email":
		return DeliveryEmail, nil
	case "sms", "phone":
		return DeliverySMS, nil
	}
	return "", apperrors.Validation("method", "must be email or phone")
}

// Delivery dispatches a one-time code out of band.
type Delivery interface {
	Send(ctx context.Context, identifier, code string, method DeliveryMethod) error
}

// LogDelivery only records the dispatch. It is the channel used when no
// SMTP relay or SMS gateway is configured.
type LogDelivery struct {
	logger *slog.Logger
}

func NewLogDelivery(logger *slog.Logger) *LogDelivery {
	return &LogDelivery{logger: logger}
}

func (d *LogDelivery) Send(ctx context.Context, identifier, code string, method DeliveryMethod) error {
	d.logger.InfoContext(ctx, "otp dispatched", "identifier", identifier, "method", method, "code", code)
	return nil
}

// MailDelivery sends email codes through SMTP and hands every other method
// to the fallback channel.
type MailDelivery struct {
	mailer   *utils.Mailer
	fallback Delivery
}

func NewMailDelivery(mailer *utils.Mailer, fallback Delivery) *MailDelivery {
	return &MailDelivery{mailer: mailer, fallback: fallback}
}

func (d *MailDelivery) Send(ctx context.Context, identifier, code string, method DeliveryMethod) error {
	if method != DeliveryEmail {
		return d.fallback.Send(ctx, identifier, code, method)
	}
	body := fmt.Sprintf(`<p>Your GyanGuru verification code is <b>%s</b>.</p><p>It expires shortly. If you did not request it, ignore this email.</p>`, code)
	return d.mailer.SendEmail(identifier, "GyanGuru verification code", body)
}
