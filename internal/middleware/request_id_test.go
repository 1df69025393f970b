// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwise-ai/meeting-agent-service/pkg/constants"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates an ID when the caller sends none", func(t *testing.T) {
		var seen string
		handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = r.Context().Value(constants.RequestIDContextID).(string)
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meetings", nil))

		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(constants.RequestIDHeader))
	})

	t.Run("honors a caller-supplied ID", func(t *testing.T) {
		var seen string
		handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = r.Context().Value(constants.RequestIDContextID).(string)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/meetings", nil)
		req.Header.Set(constants.RequestIDHeader, "caller-id-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "caller-id-1", seen)
		assert.Equal(t, "caller-id-1", rec.Header().Get(constants.RequestIDHeader))
	})
}
