// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

// Package openai is the client for the OpenAI chat completions API, used to
// summarize finished meeting transcripts.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

const (
	// BaseURL is the base URL for the OpenAI API.
	BaseURL = "https://api.openai.com/v1"
	// DefaultModel is the chat model used for summarization.
	DefaultModel = "gpt-4o"
	// DefaultClientTimeout allows for long generations on large transcripts.
	DefaultClientTimeout = 2 * time.Minute
	// DefaultMaxElapsedTime caps the total time spent retrying one request.
	DefaultMaxElapsedTime = 5 * time.Minute
)

// Config holds the configuration for the OpenAI client.
type Config struct {
	APIKey string
	// Optional: override model
	Model string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: cap on total retry time per request
	MaxElapsedTime time.Duration
}

// Summarizer generates text with the OpenAI chat completions API.
type Summarizer struct {
	httpClient *http.Client
	config     Config
}

// Ensure that Summarizer implements the domain interface.
var _ domain.Summarizer = (*Summarizer)(nil)

// NewSummarizer creates a new OpenAI summarizer client.
func NewSummarizer(config Config) *Summarizer {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxElapsedTime == 0 {
		config.MaxElapsedTime = DefaultMaxElapsedTime
	}

	return &Summarizer{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Run sends the prompts to the chat completions API and returns the generated
// text. Rate limits and server errors are retried with exponential backoff;
// an empty completion is treated as a failure so callers never persist a
// blank summary.
func (s *Summarizer) Run(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.config.APIKey == "" {
		return "", domain.NewUnavailableError("OpenAI API key is not configured")
	}

	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.NewInternalError("failed to marshal completion request", err)
	}

	var completion chatCompletionResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.config.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

		start := time.Now()
		resp, err := s.httpClient.Do(req)
		if err != nil {
			slog.WarnContext(ctx, "OpenAI request failed, retrying", logging.ErrKey, err)
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		slog.DebugContext(ctx, "OpenAI request completed",
			"model", s.config.Model,
			"status", resp.StatusCode,
			"duration", time.Since(start).String(),
		)

		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := parseErrorResponse(resp.StatusCode, data)
			if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
				slog.WarnContext(ctx, "OpenAI request failed, retrying",
					"status", resp.StatusCode, logging.ErrKey, apiErr)
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.Unmarshal(data, &completion); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse completion response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = s.config.MaxElapsedTime
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		slog.ErrorContext(ctx, "OpenAI request failed after all retries",
			logging.ErrKey, err, logging.PriorityCritical())
		return "", domain.NewInternalError("completion request failed", err)
	}

	if len(completion.Choices) == 0 {
		return "", domain.NewInternalError("completion response has no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", domain.NewInternalError("completion response is empty")
	}

	return text, nil
}

// parseErrorResponse attempts to parse an OpenAI API error response.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("openai API error (status %d, type %s): %s", statusCode, errResp.Error.Type, errResp.Error.Message)
	}
	return fmt.Errorf("openai API error (status %d): %s", statusCode, string(body))
}
