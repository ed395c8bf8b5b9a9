// Package guard define el punto de extensión que el motor de auth consulta
// antes de ejecutar cada operación (rate limit, allow-lists, etc).
package guard

import "context"

// Request describe la operación que está por ejecutarse.
type Request struct {
	TenantID string
	// Method es el AuthMethod (emailPassword, magicLink, ...).
	Method string
	// Op es la operación (login, register, request_code, ...).
	Op string
	// Key identifica al sujeto: email, teléfono o user id.
	Key string
	IP  string
}

// Guard decide si la operación puede continuar. Un error corta el flujo y
// se devuelve tal cual al caller (debería ser un *autherr.Error).
type Guard interface {
	Check(ctx context.Context, req Request) error
}

// Func adapta una función a Guard.
type Func func(ctx context.Context, req Request) error

func (f Func) Check(ctx context.Context, req Request) error { return f(ctx, req) }

// Chain ejecuta los guards en orden y devuelve el primer error.
type Chain []Guard

func (c Chain) Check(ctx context.Context, req Request) error {
	for _, g := range c {
		if g == nil {
			continue
		}
		if err := g.Check(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
