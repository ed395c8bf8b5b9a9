package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Router renderiza y despacha por canal.
type Router struct {
	Templates *Templates
	Email     EmailSender
	SMS       SMSSender
}

func NewRouter(t *Templates, email EmailSender, sms SMSSender) *Router {
	if t == nil {
		t = DefaultTemplates()
	}
	return &Router{Templates: t, Email: email, SMS: sms}
}

var _ Notifier = (*Router)(nil)

func (r *Router) Notify(ctx context.Context, msg Message) error {
	log := logger.From(ctx).With(logger.Component("notify"), logger.String("template", msg.TemplateKey),
		logger.String("channel", string(msg.Channel)), logger.TenantID(msg.TenantID))

	switch msg.Channel {
	case ChannelEmail:
		if r.Email == nil {
			return fmt.Errorf("%w: %s", ErrNoSender, msg.Channel)
		}
		rendered, err := r.Templates.RenderEmail(msg.TemplateKey, msg.Params)
		if err != nil {
			return err
		}
		from := msg.FromEmail
		if from != "" && msg.FromName != "" {
			from = (&mail.Address{Name: msg.FromName, Address: msg.FromEmail}).String()
		}
		if err := r.Email.SendEmail(ctx, from, msg.To, rendered); err != nil {
			return err
		}
	case ChannelSMS:
		if r.SMS == nil {
			return fmt.Errorf("%w: %s", ErrNoSender, msg.Channel)
		}
		body, err := r.Templates.RenderSMS(msg.TemplateKey, msg.Params)
		if err != nil {
			return err
		}
		if err := r.SMS.SendSMS(ctx, msg.To, body); err != nil {
			return err
		}
	default:
		return fmt.Errorf("notify: unknown channel %q", msg.Channel)
	}
	log.Debug("notification dispatched")
	return nil
}
