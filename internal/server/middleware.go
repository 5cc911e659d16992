package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

type contextKey int

const (
	coachIDKey contextKey = iota
	coachInfoKey
)

// defaultCoachID is used when a request names no coach.
const defaultCoachID = 1

// CoachInfo describes who a request acts for.
type CoachInfo struct {
	ID     int    `json:"coach_id"`
	Source string `json:"source"`
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CoachIdentity reads the X-Coach-ID header into the request context. A
// missing header acts as coach 1; a malformed one is rejected.
func CoachIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := CoachInfo{ID: defaultCoachID, Source: "default"}
		if v := r.Header.Get("X-Coach-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				http.Error(w, `{"error":"invalid X-Coach-ID"}`, http.StatusBadRequest)
				return
			}
			info = CoachInfo{ID: id, Source: "header"}
		}
		ctx := context.WithValue(r.Context(), coachIDKey, info.ID)
		ctx = context.WithValue(ctx, coachInfoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// coachIDFromContext returns the coach set by CoachIdentity, or 1.
func coachIDFromContext(r *http.Request) int {
	if id, ok := r.Context().Value(coachIDKey).(int); ok {
		return id
	}
	return defaultCoachID
}

func coachInfoFromContext(r *http.Request) CoachInfo {
	if info, ok := r.Context().Value(coachInfoKey).(CoachInfo); ok {
		return info
	}
	return CoachInfo{ID: defaultCoachID, Source: "default"}
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, X-API-Key, X-Coach-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers such as the MCP endpoint flush through the
// wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
