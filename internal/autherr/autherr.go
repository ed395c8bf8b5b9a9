// Package autherr define la taxonomía de errores del motor de autenticación.
//
// Todas las operaciones públicas devuelven *Error (o un error que lo envuelve);
// la capa HTTP traduce Kind a status/código sin inspeccionar mensajes.
package autherr

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

// Kind clasifica el motivo del rechazo.
type Kind int

const (
	Internal Kind = iota
	TenantIdentifierMissing
	TenantNotFound
	InvalidIdentifier
	MethodNotEnabled
	ValidationFailed
	UserNotFound
	AccountLocked
	AccountInactive
	InvalidCredentials
	CodeExpired
	TokenExpired
	InvalidState
	DuplicateIdentity
	SchemaCycleDetected
	DisplayNameGenerationFailed
	TransientStoreFailure
	QuotaExceeded
)

var kindNames = map[Kind]string{
	Internal:                    "internal",
	TenantIdentifierMissing:     "tenant_identifier_missing",
	TenantNotFound:              "tenant_not_found",
	InvalidIdentifier:           "invalid_identifier",
	MethodNotEnabled:            "method_not_enabled",
	ValidationFailed:            "validation_failed",
	UserNotFound:                "user_not_found",
	AccountLocked:               "account_locked",
	AccountInactive:             "account_inactive",
	InvalidCredentials:          "invalid_credentials",
	CodeExpired:                 "code_expired",
	TokenExpired:                "token_expired",
	InvalidState:                "invalid_state",
	DuplicateIdentity:           "duplicate_identity",
	SchemaCycleDetected:         "schema_cycle_detected",
	DisplayNameGenerationFailed: "display_name_generation_failed",
	TransientStoreFailure:       "transient_store_failure",
	QuotaExceeded:               "quota_exceeded",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error es el error tipado del dominio.
type Error struct {
	Kind       Kind
	Message    string
	Violations []string // solo ValidationFailed
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Violations) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Violations, "; "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is permite errors.Is(err, &autherr.Error{Kind: X}) comparando solo el Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation construye un ValidationFailed con la lista completa de violaciones.
func Validation(msg string, violations []string) *Error {
	v := make([]string, len(violations))
	copy(v, violations)
	return &Error{Kind: ValidationFailed, Message: msg, Violations: v}
}

// KindOf extrae el Kind; errores ajenos al dominio son Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reporta si err es del Kind dado.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsTransient reporta fallas de infraestructura reintentables por el caller.
func IsTransient(err error) bool {
	return Is(err, TransientStoreFailure)
}

// ViolationsOf retorna las violaciones de un ValidationFailed (o nil).
func ViolationsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Violations
	}
	return nil
}

// Store clasifica un error de repositorio: timeouts y fallas de conexión son
// TransientStoreFailure, el resto Internal. Un *Error existente se respeta.
func Store(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if repository.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, TransientStoreFailure, msg)
	}
	return Wrap(err, Internal, msg)
}
