// Package notify arma y entrega los mensajes salientes (email y SMS) que
// producen los flujos de auth. El motor solo arma destinatario, template y
// parámetros; la entrega queda en los senders.
package notify

import (
	"context"
	"errors"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Template keys.
const (
	TemplateVerifyEmail   = "verify_email"
	TemplateResetPassword = "reset_password"
	TemplateMagicLink     = "magic_link"
	TemplateSMSCode       = "sms_code"
	TemplateUserLocked    = "user_locked"
)

// Message es lo que produce el motor. Params nunca se loguea: puede
// contener tokens o códigos.
type Message struct {
	Channel     Channel
	To          string
	TemplateKey string
	Params      map[string]string
	TenantID    string
	// From opcional; vacío usa el remitente del sender.
	FromEmail string
	FromName  string
}

// Notifier entrega un Message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

var (
	ErrNoSender        = errors.New("notify: no sender configured for channel")
	ErrUnknownTemplate = errors.New("notify: unknown template")
)

// NotifierFunc adapta una función.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }
