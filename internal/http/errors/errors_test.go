package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
)

func TestFromErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{autherr.New(autherr.TenantIdentifierMissing, "x"), http.StatusBadRequest, "TENANT_REQUIRED"},
		{autherr.New(autherr.AccountLocked, "x"), http.StatusLocked, "ACCOUNT_LOCKED"},
		{autherr.New(autherr.DuplicateIdentity, "x"), http.StatusConflict, "DUPLICATE_IDENTITY"},
		{autherr.New(autherr.QuotaExceeded, "x"), http.StatusTooManyRequests, "RATE_LIMITED"},
		{fmt.Errorf("wrapped: %w", autherr.New(autherr.TokenExpired, "x")), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, c := range cases {
		app := FromError(c.err)
		require.Equal(t, c.status, app.HTTPStatus, c.err.Error())
		require.Equal(t, c.code, app.Code, c.err.Error())
	}
}

func TestWriteErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "rid-1")
	cause := fmt.Errorf("pq: connection refused at 10.0.0.5")
	WriteError(rec, autherr.Wrap(cause, autherr.TransientStoreFailure, "find user"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.NotContains(t, rec.Body.String(), "10.0.0.5")
	require.NotContains(t, rec.Body.String(), "find user")

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "TEMPORARILY_UNAVAILABLE", body.Code)
	require.Equal(t, "rid-1", body.RequestID)
}

func TestWriteErrorViolations(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, autherr.Validation("validation failed", []string{"min_length", "digit"}))

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, []string{"min_length", "digit"}, body.Violations)
}

func TestMaskUnknownUser(t *testing.T) {
	app := FromError(MaskUnknownUser(autherr.New(autherr.UserNotFound, "user not found")))
	require.Equal(t, http.StatusUnauthorized, app.HTTPStatus)
	require.Equal(t, "INVALID_CREDENTIALS", app.Code)
	require.Equal(t, "invalid credentials", app.Message)
}
