// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/auth"
	"github.com/meetwise-ai/meeting-agent-service/internal/service"
)

func (a *MeetingAgentAPI) handleCreateMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	var req service.CreateMeetingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	meeting, err := a.meetingService.CreateMeeting(ctx, principal.UserID, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

func (a *MeetingAgentAPI) handleGetMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	meeting, err := a.meetingService.GetMeeting(ctx, principal.UserID, mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (a *MeetingAgentAPI) handleListMeetings(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := service.MeetingFilter{
		Status:   models.MeetingStatus(query.Get("status")),
		AgentUID: query.Get("agent_uid"),
		Page:     queryInt(query.Get("page")),
		PageSize: queryInt(query.Get("page_size")),
	}

	meetings, err := a.meetingService.ListMeetings(ctx, principal.UserID, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (a *MeetingAgentAPI) handleUpdateMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	var req service.UpdateMeetingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	meeting, err := a.meetingService.UpdateMeeting(ctx, principal.UserID, mux.Vars(r)["uid"], req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (a *MeetingAgentAPI) handleDeleteMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	if err := a.meetingService.DeleteMeeting(ctx, principal.UserID, mux.Vars(r)["uid"]); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *MeetingAgentAPI) handleStartMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	meeting, err := a.meetingService.StartMeeting(ctx, principal.UserID, mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (a *MeetingAgentAPI) handleLeaveMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	meeting, err := a.meetingService.LeaveMeeting(ctx, principal.UserID, mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (a *MeetingAgentAPI) handleCancelMeeting(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	meeting, err := a.meetingService.CancelMeeting(ctx, principal.UserID, mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (a *MeetingAgentAPI) handleMeetingToken(w http.ResponseWriter, r *http.Request, principal *auth.Principal) {
	ctx := r.Context()

	token, err := a.meetingService.IssueJoinToken(ctx, principal.UserID, principal.Name, mux.Vars(r)["uid"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// queryInt parses a pagination query parameter, treating absent or invalid
// values as unset.
func queryInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
