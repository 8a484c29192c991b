package v1

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/loanledger/internal/ledger"
)

const ctxKeyCaller ctxKey = "caller"

// caller is filled in by authenticate so the request logger can name who
// made the request once it completes.
type caller struct {
	id ledger.Identity
	ok bool
}

func callerFrom(ctx context.Context) *caller {
	c, _ := ctx.Value(ctxKeyCaller).(*caller)
	return c
}

// requestLogger logs request start at INFO and completion at INFO, WARN for
// 5xx, with the caller when the request was authenticated.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			reqID := chimw.GetReqID(r.Context())
			l.Info("request started", "req_id", reqID, "method", r.Method, "path", r.URL.Path)

			who := &caller{}
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), ctxKeyCaller, who)))

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			attrs := []any{
				"req_id", reqID,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			}
			if who.ok {
				attrs = append(attrs, "actor", who.id.Actor(), "role", who.id.Role)
			}
			l.Log(r.Context(), level, "request complete", attrs...)
		})
	}
}

// recoverer logs panics as ERROR and returns a 500 error body.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					reqID := chimw.GetReqID(r.Context())
					l.Error("panic", "req_id", reqID, "method", r.Method, "path", r.URL.Path, "err", rec, "stack", string(debug.Stack()))
					writeErr(w, http.StatusInternalServerError, "internal error", "internal")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
