// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/auth"
	"github.com/meetwise-ai/meeting-agent-service/internal/service"
)

func (a *MeetingAgentAPI) handleCreateAgent(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	var req service.CreateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	agent, err := a.agentService.CreateAgent(ctx, principal.UserID, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (a *MeetingAgentAPI) handleGetAgent(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	agent, err := a.agentService.GetAgent(ctx, principal.UserID, mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (a *MeetingAgentAPI) handleListAgents(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := service.AgentFilter{
		Page:     queryInt(query.Get("page")),
		PageSize: queryInt(query.Get("page_size")),
	}

	agents, err := a.agentService.ListAgents(ctx, principal.UserID, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (a *MeetingAgentAPI) handleUpdateAgent(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	var req service.UpdateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	agent, err := a.agentService.UpdateAgent(ctx, principal.UserID, mux.Vars(r)["uid"], req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (a *MeetingAgentAPI) handleDeleteAgent(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	if err := a.agentService.DeleteAgent(ctx, principal.UserID, mux.Vars(r)["uid"]); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
