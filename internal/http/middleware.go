package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/idempotency"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
	"github.com/Laminito/event-app-pro-backend/internal/rateLimit"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	identityKey
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey, entry)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			observability.RequestsTotal.WithLabelValues(
				r.URL.Path, strconv.Itoa(ww.Status()), r.Method).Inc()
		})
	}
}

func loggerFrom(ctx context.Context) (observability.Logger, bool) {
	l, ok := ctx.Value(loggerKey).(observability.Logger)
	return l, ok
}

// IdentityMiddleware trusts the X-User-ID and X-User-Role headers set by the
// auth gateway in front of this service. Requests without an identity pass
// through anonymously; handlers that need one call requireIdentity.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity")
			return
		}
		role := r.Header.Get("X-User-Role")
		if role == "" {
			role = booking.RoleUser
		}
		ctx := context.WithValue(r.Context(), identityKey, booking.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) (booking.Identity, bool) {
	id, ok := ctx.Value(identityKey).(booking.Identity)
	return id, ok
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (booking.Identity, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	}
	return id, ok
}

// IdempotencyMiddleware replays the stored response for a repeated POST with
// the same Idempotency-Key, and captures the first response on the way out.
func IdempotencyMiddleware(idemp *idempotency.Idempotency) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) < 16 {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Idempotency-Key too short")
				return
			}

			existing, err := idemp.Get(r.Context(), key)
			if err == nil && existing != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(existing.Status)
				w.Write(existing.Result)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < http.StatusInternalServerError {
				idemp.Set(r.Context(), key, idempotency.Response{
					Status: rec.status,
					Result: rec.body,
				})
			}
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func RateLimitMiddleware(rl *rateLimit.RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + r.RemoteAddr
			limit := 100
			if id, ok := identityFrom(r.Context()); ok {
				key = "user:" + id.UserID.String()
				limit = 60
			}
			if !rl.Allow(r.Context(), key, limit, time.Minute) {
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
