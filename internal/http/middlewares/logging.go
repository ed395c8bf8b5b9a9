package middlewares

import (
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// responseRecorder guarda el status final y los bytes escritos.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
	sent    bool
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.sent {
		return
	}
	rw.status, rw.sent = code, true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if !rw.sent {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// wrap reutiliza el recorder si otro middleware ya envolvió el writer.
func wrap(w http.ResponseWriter) *responseRecorder {
	if rec, ok := w.(*responseRecorder); ok {
		return rec
	}
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests, status == http.StatusLocked:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// WithLogging deja en el contexto un logger con request_id, método, path e
// IP, y escribe una línea por request al terminar.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.ClientIP(ClientIP(r)),
			)
			rec := wrap(w)
			next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), l)))

			if ce := l.Check(levelFor(rec.status), "http request"); ce != nil {
				ce.Write(
					logger.Status(rec.status),
					logger.Int("bytes", rec.written),
					logger.Duration(time.Since(start)),
				)
			}
		})
	}
}
