// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookBodyCaptureMiddleware(t *testing.T) {
	payload := `{"type":"call.session_started"}`

	t.Run("captures the raw body for the webhook path", func(t *testing.T) {
		var captured []byte
		var capturedOK bool
		var bodySeen []byte
		handler := WebhookBodyCaptureMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured, capturedOK = GetRawBodyFromContext(r.Context())
			bodySeen, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(payload))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, capturedOK)
		assert.Equal(t, payload, string(captured))
		// The body stays readable for the handler after capture.
		assert.Equal(t, payload, string(bodySeen))
	})

	t.Run("leaves other paths untouched", func(t *testing.T) {
		var capturedOK bool
		handler := WebhookBodyCaptureMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, capturedOK = GetRawBodyFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/meetings", strings.NewReader(payload))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, capturedOK)
	})
}

func TestGetRawBodyFromContext(t *testing.T) {
	_, ok := GetRawBodyFromContext(context.Background())
	assert.False(t, ok)
}
