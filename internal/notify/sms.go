package notify

import (
	"context"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// SMSSender entrega un SMS ya renderizado.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogSMSSender no entrega nada: deja el mensaje en el log (dev). El cuerpo
// solo se loguea con DebugBody porque contiene el código.
type LogSMSSender struct {
	DebugBody bool
}

func (s LogSMSSender) SendSMS(ctx context.Context, to, body string) error {
	log := logger.From(ctx).With(logger.Component("sms"), logger.String("to", maskPhone(to)))
	if s.DebugBody {
		log.Info("sms (log driver)", logger.String("body", body))
		return nil
	}
	log.Info("sms (log driver)", logger.Int("length", len(body)))
	return nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}
