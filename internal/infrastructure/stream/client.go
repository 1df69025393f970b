// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

// Package stream is the client for the Stream Video REST API, the vendor
// hosting the actual calls. The service treats the vendor as an opaque
// call-hosting provider: it creates calls keyed by meeting UID, ends them,
// and mints client join tokens.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

const (
	// BaseURL is the base URL for the Stream Video API.
	BaseURL = "https://video.stream-io-api.com/api/v2"
	// DefaultClientTimeout is the default HTTP client timeout for API requests.
	DefaultClientTimeout = 30 * time.Second
	// DefaultMaxElapsedTime caps the total time spent retrying one request.
	DefaultMaxElapsedTime = 2 * time.Minute
)

// Config holds the configuration for the Stream client.
type Config struct {
	APIKey    string
	APISecret string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: cap on total retry time per request
	MaxElapsedTime time.Duration
}

// Client is the Stream Video API client.
type Client struct {
	httpClient *http.Client
	config     Config
}

// Ensure that Client implements the platform interface.
var _ domain.VideoPlatform = (*Client)(nil)

// NewClient creates a new Stream Video API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxElapsedTime == 0 {
		config.MaxElapsedTime = DefaultMaxElapsedTime
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// serverToken mints the short-lived server-to-server JWT that authenticates
// API requests. Client join tokens are minted separately by IssueToken.
func (c *Client) serverToken() (string, error) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Claim("server", true).
		IssuedAt(now).
		Expiration(now.Add(5 * time.Minute)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build server token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(c.config.APISecret)))
	if err != nil {
		return "", fmt.Errorf("failed to sign server token: %w", err)
	}
	return string(signed), nil
}

// IssueToken returns a signed JWT the client SDK presents to join a call as
// the given user.
func (c *Client) IssueToken(userUID string, expiresIn time.Duration) (string, error) {
	if userUID == "" {
		return "", domain.NewValidationError("user UID is required to issue a token")
	}

	now := time.Now()
	tok, err := jwt.NewBuilder().
		Claim("user_id", userUID).
		IssuedAt(now).
		Expiration(now.Add(expiresIn)).
		Build()
	if err != nil {
		return "", domain.NewInternalError("failed to build join token", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(c.config.APISecret)))
	if err != nil {
		return "", domain.NewInternalError("failed to sign join token", err)
	}
	return string(signed), nil
}

// retryableStatus reports whether the HTTP status is worth retrying.
// Client errors are not: the request will fail the same way again.
func retryableStatus(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
}

// doRequest performs an authenticated request with exponential backoff on
// transient failures. The returned body is fully read and the response closed.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	token, err := c.serverToken()
	if err != nil {
		return nil, err
	}

	url := c.config.BaseURL + path
	var respBody []byte

	operation := func() error {
		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", token)
		req.Header.Set("stream-auth-type", "jwt")
		q := req.URL.Query()
		q.Set("api_key", c.config.APIKey)
		req.URL.RawQuery = q.Encode()

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			slog.WarnContext(ctx, "Stream API request failed, retrying",
				"method", method,
				"path", path,
				logging.ErrKey, err,
			)
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		slog.DebugContext(ctx, "Stream API request completed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration", time.Since(start).String(),
		)

		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := parseErrorResponse(resp.StatusCode, data)
			if retryableStatus(resp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		respBody = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.config.MaxElapsedTime
	err = backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		slog.ErrorContext(ctx, "Stream API request failed after all retries",
			"method", method,
			"path", path,
			logging.ErrKey, err,
			logging.PriorityCritical(),
		)
		return nil, err
	}

	return respBody, nil
}

// parseErrorResponse attempts to parse a Stream API error response.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("stream API error (status %d, code %d): %s", statusCode, errResp.Code, errResp.Message)
	}
	return fmt.Errorf("stream API error (status %d): %s", statusCode, string(body))
}

// callSettingsRequest is the body for call creation.
type callSettingsRequest struct {
	Data callDataRequest `json:"data"`
}

type callDataRequest struct {
	CreatedByID      string            `json:"created_by_id"`
	Custom           map[string]any    `json:"custom,omitempty"`
	SettingsOverride *settingsOverride `json:"settings_override,omitempty"`
}

type settingsOverride struct {
	Transcription *transcriptionSettings `json:"transcription,omitempty"`
	Recording     *recordingSettings     `json:"recording,omitempty"`
}

type transcriptionSettings struct {
	Mode              string `json:"mode"`
	ClosedCaptionMode string `json:"closed_caption_mode,omitempty"`
}

type recordingSettings struct {
	Mode string `json:"mode"`
}

// CreateCall creates (or reuses) the call for a meeting. The call ID is the
// meeting UID, and the UID is additionally stamped into the call's custom
// data so webhook events can always be traced back to a meeting.
func (c *Client) CreateCall(ctx context.Context, settings domain.CallSettings) error {
	if settings.MeetingUID == "" {
		return domain.NewValidationError("meeting UID is required to create a call")
	}

	req := callSettingsRequest{
		Data: callDataRequest{
			CreatedByID: settings.CreatedByUserUID,
			Custom: map[string]any{
				"meetingId":    settings.MeetingUID,
				"meetingTitle": settings.Title,
			},
		},
	}

	override := &settingsOverride{}
	if settings.Transcription {
		override.Transcription = &transcriptionSettings{
			Mode:              "auto-on",
			ClosedCaptionMode: "auto-on",
		}
	}
	if settings.Recording {
		override.Recording = &recordingSettings{Mode: "auto-on"}
	}
	if override.Transcription != nil || override.Recording != nil {
		req.Data.SettingsOverride = override
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/video/call/default/"+settings.MeetingUID, req)
	if err != nil {
		return domain.NewInternalError("failed to create call", err)
	}

	slog.DebugContext(ctx, "created call for meeting", "meeting_uid", settings.MeetingUID)
	return nil
}

// EndCall terminates the live call session for the meeting. Ending an
// already-ended call is not an error.
func (c *Client) EndCall(ctx context.Context, meetingUID string) error {
	if meetingUID == "" {
		return domain.NewValidationError("meeting UID is required to end a call")
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/video/call/default/"+meetingUID+"/mark_ended", nil)
	if err != nil {
		return domain.NewInternalError("failed to end call", err)
	}

	slog.DebugContext(ctx, "ended call for meeting", "meeting_uid", meetingUID)
	return nil
}

// upsertUsersRequest is the body for user upserts.
type upsertUsersRequest struct {
	Users map[string]upsertUserData `json:"users"`
}

type upsertUserData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// UpsertUser registers a participant identity with the vendor. Agents are
// enrolled this way before they can join calls.
func (c *Client) UpsertUser(ctx context.Context, userUID, name, role string) error {
	if userUID == "" {
		return domain.NewValidationError("user UID is required to upsert a user")
	}

	req := upsertUsersRequest{
		Users: map[string]upsertUserData{
			userUID: {
				ID:   userUID,
				Name: name,
				Role: role,
			},
		},
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/users", req)
	if err != nil {
		return domain.NewInternalError("failed to upsert user", err)
	}

	return nil
}
