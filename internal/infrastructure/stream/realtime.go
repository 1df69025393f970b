// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
)

// RealtimeProvider binds voice agents to live calls through the vendor's
// realtime bridge. It caches one session per meeting so that duplicate
// connect requests, which webhook retries produce routinely, reuse the
// existing session instead of adding a second agent to the call.
type RealtimeProvider struct {
	client       *Client
	openAIAPIKey string

	mu       sync.Mutex
	sessions map[string]*realtimeSession
}

// Ensure RealtimeProvider implements the domain interface.
var _ domain.RealtimeProvider = (*RealtimeProvider)(nil)

// NewRealtimeProvider creates a new realtime provider on top of the API client.
func NewRealtimeProvider(client *Client, openAIAPIKey string) *RealtimeProvider {
	return &RealtimeProvider{
		client:       client,
		openAIAPIKey: openAIAPIKey,
		sessions:     make(map[string]*realtimeSession),
	}
}

type connectRequest struct {
	AgentUserID  string `json:"agent_user_id"`
	OpenAIAPIKey string `json:"openai_api_key"`
}

// Connect joins the configured voice agent to the meeting's call. It is
// idempotent: a second Connect for the same meeting returns the cached
// session.
func (p *RealtimeProvider) Connect(ctx context.Context, meetingUID, agentUserUID string) (domain.RealtimeSession, error) {
	if meetingUID == "" {
		return nil, domain.NewValidationError("meeting UID is required to connect an agent")
	}

	p.mu.Lock()
	if session, ok := p.sessions[meetingUID]; ok {
		p.mu.Unlock()
		slog.DebugContext(ctx, "reusing existing realtime session", "meeting_uid", meetingUID)
		return session, nil
	}
	p.mu.Unlock()

	req := connectRequest{
		AgentUserID:  agentUserUID,
		OpenAIAPIKey: p.openAIAPIKey,
	}

	_, err := p.client.doRequest(ctx, http.MethodPost,
		"/video/call/default/"+meetingUID+"/openai/connect", req)
	if err != nil {
		return nil, domain.NewInternalError("failed to connect agent to call", err)
	}

	session := &realtimeSession{
		provider:   p,
		meetingUID: meetingUID,
	}

	p.mu.Lock()
	// Another goroutine may have connected while we were off the lock; keep
	// the first session and let the vendor dedupe the agent join.
	if existing, ok := p.sessions[meetingUID]; ok {
		p.mu.Unlock()
		return existing, nil
	}
	p.sessions[meetingUID] = session
	p.mu.Unlock()

	slog.InfoContext(ctx, "connected agent to call",
		"meeting_uid", meetingUID,
		"agent_user_uid", agentUserUID,
	)
	return session, nil
}

// Disconnect drops the cached session for a meeting. The vendor tears down
// the realtime bridge itself when the call ends, so this only releases local
// state.
func (p *RealtimeProvider) Disconnect(ctx context.Context, meetingUID string) {
	p.mu.Lock()
	_, ok := p.sessions[meetingUID]
	delete(p.sessions, meetingUID)
	p.mu.Unlock()

	if ok {
		slog.DebugContext(ctx, "released realtime session", "meeting_uid", meetingUID)
	}
}

// realtimeSession is a live agent session bound to one meeting's call.
type realtimeSession struct {
	provider   *RealtimeProvider
	meetingUID string
}

type sessionUpdateRequest struct {
	Instructions string `json:"instructions"`
}

// UpdateInstructions replaces the agent's active directive. The vendor
// applies the latest instructions wholesale, so repeated pushes of the same
// text are harmless.
func (s *realtimeSession) UpdateInstructions(ctx context.Context, instructions string) error {
	req := sessionUpdateRequest{Instructions: instructions}

	_, err := s.provider.client.doRequest(ctx, http.MethodPost,
		"/video/call/default/"+s.meetingUID+"/openai/session", req)
	if err != nil {
		return domain.NewInternalError("failed to update agent instructions", err)
	}

	slog.DebugContext(ctx, "updated agent instructions", "meeting_uid", s.meetingUID)
	return nil
}
