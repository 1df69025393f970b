// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/auth"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/webhook"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
	"github.com/meetwise-ai/meeting-agent-service/internal/service"
	"github.com/meetwise-ai/meeting-agent-service/pkg/constants"
)

// MeetingAgentAPI is the HTTP surface of the service.
type MeetingAgentAPI struct {
	jwtAuth          auth.IJWTAuth
	meetingService   *service.MeetingService
	agentService     *service.AgentService
	webhookService   *service.WebhookEventService
	webhookValidator *webhook.Validator
	natsConn         *nats.Conn
}

// NewMeetingAgentAPI creates a new MeetingAgentAPI.
func NewMeetingAgentAPI(
	jwtAuth auth.IJWTAuth,
	meetingService *service.MeetingService,
	agentService *service.AgentService,
	webhookService *service.WebhookEventService,
	webhookValidator *webhook.Validator,
	natsConn *nats.Conn,
) *MeetingAgentAPI {
	return &MeetingAgentAPI{
		jwtAuth:          jwtAuth,
		meetingService:   meetingService,
		agentService:     agentService,
		webhookService:   webhookService,
		webhookValidator: webhookValidator,
		natsConn:         natsConn,
	}
}

// registerRoutes mounts every endpoint on the router.
func (a *MeetingAgentAPI) registerRoutes(r *mux.Router) {
	r.HandleFunc("/livez", a.handleLivez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReadyz).Methods(http.MethodGet)

	r.HandleFunc("/api/webhook", a.handleWebhook).Methods(http.MethodPost)

	r.HandleFunc("/api/meetings", a.withAuth(a.handleCreateMeeting)).Methods(http.MethodPost)
	r.HandleFunc("/api/meetings", a.withAuth(a.handleListMeetings)).Methods(http.MethodGet)
	r.HandleFunc("/api/meetings/{uid}", a.withAuth(a.handleGetMeeting)).Methods(http.MethodGet)
	r.HandleFunc("/api/meetings/{uid}", a.withAuth(a.handleUpdateMeeting)).Methods(http.MethodPut)
	r.HandleFunc("/api/meetings/{uid}", a.withAuth(a.handleDeleteMeeting)).Methods(http.MethodDelete)
	r.HandleFunc("/api/meetings/{uid}/start", a.withAuth(a.handleStartMeeting)).Methods(http.MethodPost)
	r.HandleFunc("/api/meetings/{uid}/leave", a.withAuth(a.handleLeaveMeeting)).Methods(http.MethodPost)
	r.HandleFunc("/api/meetings/{uid}/cancel", a.withAuth(a.handleCancelMeeting)).Methods(http.MethodPost)
	r.HandleFunc("/api/meetings/{uid}/token", a.withAuth(a.handleMeetingToken)).Methods(http.MethodPost)

	r.HandleFunc("/api/agents", a.withAuth(a.handleCreateAgent)).Methods(http.MethodPost)
	r.HandleFunc("/api/agents", a.withAuth(a.handleListAgents)).Methods(http.MethodGet)
	r.HandleFunc("/api/agents/{uid}", a.withAuth(a.handleGetAgent)).Methods(http.MethodGet)
	r.HandleFunc("/api/agents/{uid}", a.withAuth(a.handleUpdateAgent)).Methods(http.MethodPut)
	r.HandleFunc("/api/agents/{uid}", a.withAuth(a.handleDeleteAgent)).Methods(http.MethodDelete)
}

func (a *MeetingAgentAPI) handleLivez(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *MeetingAgentAPI) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	ready := a.natsConn != nil && a.natsConn.IsConnected() &&
		a.meetingService.ServiceReady() &&
		a.agentService.ServiceReady() &&
		a.webhookService.ServiceReady()
	if !ready {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// authedHandler is an HTTP handler that requires an authenticated principal.
type authedHandler func(w http.ResponseWriter, r *http.Request, principal *auth.Principal)

// withAuth authenticates the request's bearer token before invoking the
// handler.
func (a *MeetingAgentAPI) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r.Header.Get(constants.AuthorizationHeader))
		if token == "" {
			writeError(ctx, w, domain.NewUnauthorizedError("missing bearer token"))
			return
		}

		principal, err := a.jwtAuth.ParsePrincipal(ctx, token, slog.Default())
		if err != nil {
			writeError(ctx, w, domain.NewUnauthorizedError("invalid session token", err))
			return
		}

		ctx = context.WithValue(ctx, constants.PrincipalContextID, principal.UserID)
		ctx = logging.AppendCtx(ctx, slog.String("principal", principal.UserID))
		next(w, r.WithContext(ctx), principal)
	}
}

// bearerToken strips the Bearer scheme from an Authorization header value.
func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// writeError maps a domain error to its HTTP status and writes it as JSON.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		status = http.StatusBadRequest
	case domain.ErrorTypeUnauthorized:
		status = http.StatusUnauthorized
	case domain.ErrorTypeForbidden:
		status = http.StatusForbidden
	case domain.ErrorTypeNotFound:
		status = http.StatusNotFound
	case domain.ErrorTypeConflict:
		status = http.StatusConflict
	case domain.ErrorTypeUnavailable:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", logging.ErrKey, err)
	} else {
		slog.DebugContext(ctx, "request rejected", logging.ErrKey, err, "status", status)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return domain.NewValidationError("invalid request body", err)
	}
	return nil
}
