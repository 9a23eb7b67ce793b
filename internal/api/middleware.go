package api

import (
	"compress/gzip"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/logging"
	"github.com/google/uuid"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middleware so that the first one listed runs first.
func Chain(h http.Handler, middleware ...Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// LoggingMiddleware assigns a request id, attaches a request logger to the
// context and logs each completed request.
func LoggingMiddleware(logger *logging.Logger, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", requestID)

			reqLogger := logger.WithFields(map[string]interface{}{
				logging.FieldRequestID: requestID,
				logging.FieldMethod:    r.Method,
				logging.FieldPath:      r.URL.Path,
			})
			r = r.WithContext(logging.WithLogger(r.Context(), reqLogger))

			// Create a response writer wrapper to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			entry := reqLogger.WithFields(map[string]interface{}{
				logging.FieldStatusCode: wrapped.statusCode,
				logging.FieldDuration:   time.Since(start).String(),
				logging.FieldClientIP:   clientIP(r, trustProxy),
			})
			if wrapped.statusCode >= http.StatusInternalServerError {
				entry.Warn("Request completed with server error")
				return
			}
			entry.Info("Request completed")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// RecoveryMiddleware recovers from panics and returns 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context()).
					WithField("panic", fmt.Sprint(rec)).
					Error("Recovered from panic")
				respondError(w, http.StatusInternalServerError, apperrors.CodeInternalError, apperrors.InternalMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SecurityHeadersMiddleware sets hardening headers on every response.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware allows cross-origin requests from the configured origins only.
func CORSMiddleware(allowedOrigins []string) Middleware {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]

			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			if ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !ok {
					respondError(w, http.StatusForbidden, "CORS_FORBIDDEN", "Origin not allowed")
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CompressionMiddleware adds gzip compression to responses.
func CompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check if client accepts gzip
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		gzw := &gzipResponseWriter{ResponseWriter: w}
		defer gzw.Close()

		next.ServeHTTP(gzw, r)
	})
}

// gzipResponseWriter compresses the body lazily so that handlers can still
// set headers before the first write.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	// Bodiless responses are passed through untouched
	if code == http.StatusNoContent || code == http.StatusNotModified {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	w.gz = gzip.NewWriter(w.ResponseWriter)
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.gz == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.gz.Write(b)
}

func (w *gzipResponseWriter) Close() {
	if w.gz != nil {
		_ = w.gz.Close()
	}
}

type identityKey struct{}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(identityKey{}).(int64)
	return id, ok
}

func withUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// IdentityMiddleware resolves the caller from a bearer token or, when
// allowUserHeader is set, from the X-User-Id header. Requests without
// credentials pass through anonymously; invalid credentials are rejected.
func IdentityMiddleware(tokens TokenParser, allowUserHeader bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); auth != "" {
				token, found := strings.CutPrefix(auth, "Bearer ")
				if !found || tokens == nil {
					respondError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid authorization header")
					return
				}
				userID, err := tokens.Parse(strings.TrimSpace(token))
				if err != nil {
					respondError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid or expired token")
					return
				}
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID)))
				return
			}

			if header := r.Header.Get("X-User-Id"); header != "" && allowUserHeader {
				userID, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64)
				if err != nil || userID <= 0 {
					respondError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid X-User-Id header")
					return
				}
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func withIdentity(ctx context.Context, userID int64) context.Context {
	ctx = withUserID(ctx, userID)
	return logging.WithLogger(ctx, logging.FromContext(ctx).WithField(logging.FieldUserID, userID))
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			respondError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the socket peer address. The first X-Forwarded-For hop is
// used instead only when the server sits behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}
