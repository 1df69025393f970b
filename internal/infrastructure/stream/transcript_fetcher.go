// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

const (
	// DefaultFetchTimeout bounds a single transcript download.
	DefaultFetchTimeout = 60 * time.Second
	// maxTranscriptSize caps the download so a runaway artifact cannot
	// exhaust memory.
	maxTranscriptSize = 64 << 20 // 64 MiB
)

// TranscriptFetcher downloads transcript artifacts from the vendor's signed
// URLs. The URLs are pre-authenticated, so no credentials are attached.
type TranscriptFetcher struct {
	httpClient *http.Client
}

var _ domain.TranscriptFetcher = (*TranscriptFetcher)(nil)

// NewTranscriptFetcher creates a new transcript fetcher.
func NewTranscriptFetcher(timeout time.Duration) *TranscriptFetcher {
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	return &TranscriptFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchTranscript downloads the raw transcript bytes.
func (f *TranscriptFetcher) FetchTranscript(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, domain.NewValidationError("transcript URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewInternalError("failed to create transcript request", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "error fetching transcript", logging.ErrKey, err)
		return nil, domain.NewUnavailableError("failed to fetch transcript", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewUnavailableError(
			fmt.Sprintf("transcript fetch returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptSize))
	if err != nil {
		return nil, domain.NewUnavailableError("failed to read transcript body", err)
	}

	slog.DebugContext(ctx, "fetched transcript",
		"bytes", len(data),
		"duration", time.Since(start).String(),
	)
	return data, nil
}
