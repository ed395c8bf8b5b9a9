package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }

// ─── Dominio ───

func TenantID(v string) zap.Field   { return zap.String("tenant_id", v) }
func TenantSlug(v string) zap.Field { return zap.String("tenant_slug", v) }
func UserID(v string) zap.Field     { return zap.String("user_id", v) }
func AuthMethod(v string) zap.Field { return zap.String("auth_method", v) }
func Provider(v string) zap.Field   { return zap.String("provider", v) }

// Email enmascara la parte local: "j***@example.com".
func Email(v string) zap.Field {
	for i := 0; i < len(v); i++ {
		if v[i] == '@' {
			if i == 0 {
				return zap.String("email", v)
			}
			return zap.String("email", v[:1]+"***"+v[i:])
		}
	}
	return zap.String("email", "***")
}

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

func String(k, v string) zap.Field    { return zap.String(k, v) }
func Int(k string, v int) zap.Field   { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Any(k string, v any) zap.Field   { return zap.Any(k, v) }
