// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// MeetingStatus is the lifecycle stage of a meeting. It is the single source
// of truth for where a meeting is in its lifecycle.
type MeetingStatus string

const (
	// MeetingStatusUpcoming is the initial status of a scheduled meeting.
	MeetingStatusUpcoming MeetingStatus = "upcoming"
	// MeetingStatusActive means the call session is live.
	MeetingStatusActive MeetingStatus = "active"
	// MeetingStatusProcessing means the call ended and the transcript
	// pipeline has not yet closed the meeting out.
	MeetingStatusProcessing MeetingStatus = "processing"
	// MeetingStatusCompleted is terminal. A completed meeting with an empty
	// summary indicates the pipeline failed but the lifecycle still closed.
	MeetingStatusCompleted MeetingStatus = "completed"
	// MeetingStatusCancelled is terminal and only reachable by user action.
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are accepted from the status.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusCompleted || s == MeetingStatusCancelled
}

// IsValid reports whether the status is one of the known lifecycle stages.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingStatusUpcoming, MeetingStatusActive, MeetingStatusProcessing,
		MeetingStatusCompleted, MeetingStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions is the lifecycle edge set. The processing -> completed
// edge is written exclusively by the transcript pipeline.
var allowedTransitions = map[MeetingStatus][]MeetingStatus{
	MeetingStatusUpcoming:   {MeetingStatusActive, MeetingStatusCancelled},
	MeetingStatusActive:     {MeetingStatusProcessing},
	MeetingStatusProcessing: {MeetingStatusCompleted},
}

// CanTransitionTo reports whether next is a legal transition from s.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Meeting is the key-value store representation of a meeting. The UID doubles
// as the video platform call identifier (1:1 mapping, no separate call ID).
type Meeting struct {
	UID           string        `json:"uid"`
	Title         string        `json:"title"`
	AgentUID      string        `json:"agent_uid"`
	UserUID       string        `json:"user_uid"`
	Status        MeetingStatus `json:"status"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	TranscriptURL string        `json:"transcript_url,omitempty"`
	RecordingURL  string        `json:"recording_url,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

// Transition moves the meeting to the next status and stamps the lifecycle
// timestamps. It returns false with no error when the transition is a no-op:
// either the meeting is already in the requested status, or the meeting is in
// a terminal status (idempotent tolerance for duplicate webhook delivery).
// An edge outside the state machine returns an error and mutates nothing.
func (m *Meeting) Transition(next MeetingStatus, now time.Time) (bool, error) {
	if m.Status == next {
		return false, nil
	}
	if m.Status.IsTerminal() {
		return false, nil
	}
	if !m.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("invalid meeting status transition from %q to %q", m.Status, next)
	}

	m.Status = next
	switch next {
	case MeetingStatusActive:
		if m.StartedAt == nil {
			m.StartedAt = &now
		}
	case MeetingStatusProcessing:
		if m.EndedAt == nil {
			endedAt := now
			// ended_at must never precede started_at.
			if m.StartedAt != nil && endedAt.Before(*m.StartedAt) {
				endedAt = *m.StartedAt
			}
			m.EndedAt = &endedAt
		}
	}
	m.UpdatedAt = &now

	return true, nil
}

// HasSummary reports whether the pipeline has persisted a non-empty summary.
func (m *Meeting) HasSummary() bool {
	return m.Summary != ""
}

// Duration returns the elapsed call time, or zero if the meeting never
// started or has not ended.
func (m *Meeting) Duration() time.Duration {
	if m.StartedAt == nil || m.EndedAt == nil {
		return 0
	}
	return m.EndedAt.Sub(*m.StartedAt)
}
