// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

// Package middleware contains the HTTP middleware of the service.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
	"github.com/meetwise-ai/meeting-agent-service/pkg/constants"
)

// RequestIDMiddleware assigns each request an ID, honoring one supplied by
// the caller, and exposes it in the response headers and the log context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(constants.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), constants.RequestIDContextID, requestID)
			ctx = logging.AppendCtx(ctx, slog.String("request_id", requestID))

			w.Header().Set(constants.RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
