// Package auth expone el motor de autenticación por HTTP. Los handlers son
// finos: decodifican, llaman al motor y mapean el resultado.
package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	engine "github.com/dropDatabas3/tenantauth/internal/auth"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

const (
	maxBodySize     = 64 * 1024
	contentTypeJSON = "application/json; charset=utf-8"
)

// Controller agrupa los handlers de /v1/auth.
type Controller struct {
	engine *engine.Engine
	now    func() time.Time
}

func New(e *engine.Engine, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{engine: e, now: now}
}

// ─── Helpers ───

// decode es tolerante a campos desconocidos. Body vacío deja v en cero.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "application/json") {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("Content-Type must be application/json"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (c *Controller) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	app := httperrors.FromError(err)
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op(op))
	if app.HTTPStatus >= http.StatusInternalServerError {
		log.Error("request failed", logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("code", app.Code))
	}
	httperrors.WriteError(w, app)
}

func (c *Controller) session(w http.ResponseWriter, status int, s *engine.Session) {
	writeJSON(w, status, dto.NewTokenResponse(s.Tokens, s.User, c.now()))
}

func dispatch(d *engine.Dispatch) dto.DispatchResponse {
	out := dto.DispatchResponse{Sent: d.Sent, DebugToken: d.DebugToken}
	if !d.ExpiresAt.IsZero() {
		t := d.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

// tokenParam: path {token}, query ?token= o body {"token"}.
func tokenParam(w http.ResponseWriter, r *http.Request, pathValue string) (string, bool) {
	if pathValue != "" {
		return pathValue, true
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	if r.Method == http.MethodGet {
		return "", true
	}
	var req dto.TokenRequest
	if !decode(w, r, &req) {
		return "", false
	}
	return strings.TrimSpace(req.Token), true
}
