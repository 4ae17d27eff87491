package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	goamiddleware "goa.design/goa/v3/middleware"

	"barakahit/internal/logger"
)

// securityHeaders adds security headers to responses
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// HSTS (only in production with HTTPS)
		if !s.cfg.App.IsDevelopment() && r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and sets CORS headers for allowed origins.
// A "*" entry in ALLOWED_ORIGINS allows any origin without credentials.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := s.cfg.CORS.AllowedOrigins
	wildcard := slices.Contains(allowed, "*")
	methods := strings.Join(s.cfg.CORS.AllowedMethods, ", ")
	headers := strings.Join(s.cfg.CORS.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(s.cfg.CORS.MaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()

		switch {
		case wildcard:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowed, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		case origin != "":
			logger.WithRequest(r.Context(), s.log).Infow("origin not allowed", "origin", origin)
			writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{Message: msgOriginForbidden})
			return
		}

		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Expose-Headers", "Content-Type, X-Request-ID")
		h.Set("Access-Control-Max-Age", maxAge)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// contactMethods sends every verb other than POST on the contact path to
// handleContact, so the muxer's bare 405 is never used there. OPTIONS is
// answered by cors before this runs.
func (s *Server) contactMethods(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == contactPath && r.Method != http.MethodPost {
			s.handleContact(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// requestLogging logs every request except health checks and echoes the request ID.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := r.Context().Value(goamiddleware.RequestIDKey).(string); ok {
			w.Header().Set("X-Request-ID", id)
		}

		if r.URL.Path == legacyHealthPath || r.URL.Path == healthPath {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := logger.WithRequest(r.Context(), s.log)
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		}
		if rec.status >= http.StatusInternalServerError {
			log.Warnw("request failed", fields...)
			return
		}
		log.Infow("request completed", fields...)
	})
}

// recoverPanics turns a handler panic into the generic JSON 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			logger.WithRequest(r.Context(), s.log).Errorw("panic while handling request",
				"panic", p, "stack", string(debug.Stack()))
			if rec.wroteHeader {
				return
			}
			resp := errorResponse{Message: msgSubmitFailed}
			if s.cfg.App.IsDevelopment() {
				resp.Debug = &debugInfo{Name: "panic", Message: fmt.Sprint(p)}
			}
			writeJSON(r.Context(), rec, http.StatusInternalServerError, resp)
		}()
		next.ServeHTTP(rec, r)
	})
}
