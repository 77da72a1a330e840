package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// Client supplied ids longer than this are replaced.
const maxRequestIDLength = 64

type requestLoggerKey struct{}

// requestIDMiddleware tags every request with an id, echoes it back to the
// client and attaches a logger carrying it to the request context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.Must(uuid.NewV4()).String()
		}
		w.Header().Set(requestIDHeader, reqID)

		logger := s.cfg.Logger.With(zap.String("request_id", reqID))
		ctx := context.WithValue(r.Context(), requestLoggerKey{}, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value(requestLoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return s.cfg.Logger
}
