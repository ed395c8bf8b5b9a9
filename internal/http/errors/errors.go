// Package errors traduce errores del dominio (autherr) a respuestas HTTP.
// La causa original nunca se serializa.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
)

// AppError es el error que se escribe al cliente.
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Violations []string `json:"violations,omitempty"`
	HTTPStatus int      `json:"-"`
	Err        error    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetail devuelve una copia con detalle.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause devuelve una copia con la causa (solo para logs).
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// ─── Predefinidos ───

var (
	ErrBadRequest          = New(http.StatusBadRequest, "BAD_REQUEST", "invalid request")
	ErrInvalidJSON         = New(http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON")
	ErrMethodNotAllowed    = New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	ErrNotFound            = New(http.StatusNotFound, "NOT_FOUND", "resource not found")
	ErrTokenMissing        = New(http.StatusUnauthorized, "TOKEN_MISSING", "missing bearer token")
	ErrInvalidCredentials  = New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
	ErrInternalServerError = New(http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable")
)

type mapping struct {
	status int
	code   string
}

var kindMap = map[autherr.Kind]mapping{
	autherr.TenantIdentifierMissing:     {http.StatusBadRequest, "TENANT_REQUIRED"},
	autherr.TenantNotFound:              {http.StatusNotFound, "TENANT_NOT_FOUND"},
	autherr.InvalidIdentifier:           {http.StatusBadRequest, "INVALID_IDENTIFIER"},
	autherr.MethodNotEnabled:            {http.StatusForbidden, "METHOD_NOT_ENABLED"},
	autherr.ValidationFailed:            {http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
	autherr.UserNotFound:                {http.StatusNotFound, "USER_NOT_FOUND"},
	autherr.AccountLocked:               {http.StatusLocked, "ACCOUNT_LOCKED"},
	autherr.AccountInactive:             {http.StatusForbidden, "ACCOUNT_INACTIVE"},
	autherr.InvalidCredentials:          {http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	autherr.CodeExpired:                 {http.StatusUnauthorized, "CODE_EXPIRED"},
	autherr.TokenExpired:                {http.StatusUnauthorized, "TOKEN_EXPIRED"},
	autherr.InvalidState:                {http.StatusBadRequest, "INVALID_STATE"},
	autherr.DuplicateIdentity:           {http.StatusConflict, "DUPLICATE_IDENTITY"},
	autherr.SchemaCycleDetected:         {http.StatusUnprocessableEntity, "SCHEMA_CYCLE_DETECTED"},
	autherr.DisplayNameGenerationFailed: {http.StatusInternalServerError, "DISPLAY_NAME_GENERATION_FAILED"},
	autherr.TransientStoreFailure:       {http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE"},
	autherr.QuotaExceeded:               {http.StatusTooManyRequests, "RATE_LIMITED"},
}

// FromError convierte cualquier error en AppError. Errores desconocidos → 500.
func FromError(err error) *AppError {
	var app *AppError
	if stderrors.As(err, &app) {
		return app
	}
	var ae *autherr.Error
	if stderrors.As(err, &ae) {
		m, ok := kindMap[ae.Kind]
		if !ok {
			return ErrInternalServerError.WithCause(err)
		}
		msg := ae.Message
		if m.status >= http.StatusInternalServerError {
			msg = http.StatusText(m.status)
		}
		return &AppError{
			Code:       m.code,
			Message:    msg,
			Violations: ae.Violations,
			HTTPStatus: m.status,
			Err:        err,
		}
	}
	return ErrInternalServerError.WithCause(err)
}

// MaskUnknownUser presenta UserNotFound como credenciales inválidas (login).
func MaskUnknownUser(err error) error {
	if autherr.Is(err, autherr.UserNotFound) {
		return ErrInvalidCredentials.WithCause(err)
	}
	return err
}

type errorResponse struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Violations []string `json:"violations,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
}

// WriteError escribe el error como JSON.
func WriteError(w http.ResponseWriter, err error) {
	app := FromError(err)
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	switch app.HTTPStatus {
	case http.StatusServiceUnavailable:
		h.Set("Retry-After", "1")
	case http.StatusUnauthorized:
		h.Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	w.WriteHeader(app.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:       app.Code,
		Message:    app.Message,
		Detail:     app.Detail,
		Violations: app.Violations,
		RequestID:  h.Get("X-Request-ID"),
	})
}
