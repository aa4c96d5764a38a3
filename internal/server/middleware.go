package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Headers set by the authenticating gateway in front of the API.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
)

type ctxKey int

const (
	companyKey ctxKey = iota
	userKey
)

// tenant rejects requests without a valid company and user and stores both in the context.
func tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID, ok1 := positiveID(r.Header.Get(HeaderCompanyID))
		userID, ok2 := positiveID(r.Header.Get(HeaderUserID))
		if !ok1 || !ok2 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid tenant"})
			return
		}
		ctx := context.WithValue(r.Context(), companyKey, companyID)
		ctx = context.WithValue(ctx, userKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func positiveID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func companyID(ctx context.Context) int64 {
	id, _ := ctx.Value(companyKey).(int64)
	return id
}

func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey).(int64)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
