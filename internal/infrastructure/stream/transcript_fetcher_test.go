// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
)

func TestTranscriptFetcherFetchTranscript(t *testing.T) {
	ctx := context.Background()
	payload := `{"speaker_id":"user-1","type":"speech","text":"hello","start_ts":0,"stop_ts":1}` + "\n"

	t.Run("downloads the raw bytes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(payload))
		}))
		defer server.Close()
		fetcher := NewTranscriptFetcher(0)

		data, err := fetcher.FetchTranscript(ctx, server.URL)

		require.NoError(t, err)
		assert.Equal(t, payload, string(data))
	})

	t.Run("non-200 status is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()
		fetcher := NewTranscriptFetcher(0)

		_, err := fetcher.FetchTranscript(ctx, server.URL)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("empty URL is a validation error", func(t *testing.T) {
		fetcher := NewTranscriptFetcher(0)

		_, err := fetcher.FetchTranscript(ctx, "")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})

	t.Run("unreachable host is unavailable", func(t *testing.T) {
		fetcher := NewTranscriptFetcher(0)

		_, err := fetcher.FetchTranscript(ctx, "http://127.0.0.1:1/transcript.jsonl")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}
