// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"strings"
)

// Webhook event types sent by the video platform. The payload shape is
// inconsistent across event types and SDK versions, so every lookup on
// CallWebhookEvent walks an ordered list of fallback field paths.
const (
	CallSessionStartedEvent         = "call.session_started"
	CallSessionParticipantLeftEvent = "call.session_participant_left"
	CallEndedEvent                  = "call.ended"
	CallTranscriptionReadyEvent     = "call.transcription_ready"
	CallRecordingReadyEvent         = "call.recording_ready"
	CallTranscriptionStartedEvent   = "call.transcription_started"
	AgentWakeUpEvent                = "agent-wake-up"
)

// CallWebhookEvent is the parsed form of an inbound webhook body. It is a
// superset of all known event variants; fields not sent for a given event
// type are simply zero. Payloads are untrusted and partially structured.
type CallWebhookEvent struct {
	Type      string `json:"type"`
	CallCID   string `json:"call_cid,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	MeetingID string `json:"meeting_id,omitempty"`
	URL       string `json:"url,omitempty"`

	Call              *CallPayload          `json:"call,omitempty"`
	CallTranscription *MediaPayload         `json:"call_transcription,omitempty"`
	Transcription     *TranscriptionPayload `json:"transcription,omitempty"`
	CallRecording     *MediaPayload         `json:"call_recording,omitempty"`
	Recording         *MediaPayload         `json:"recording,omitempty"`
}

// CallPayload is the call session metadata carried by lifecycle events.
type CallPayload struct {
	CID       string         `json:"cid,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Custom    map[string]any `json:"custom,omitempty"`
}

// MediaPayload carries a URL to a produced artifact (transcript, recording).
type MediaPayload struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// TranscriptionPayload carries live transcription fragments.
type TranscriptionPayload struct {
	URL  string              `json:"url,omitempty"`
	Text string              `json:"text,omitempty"`
	User *TranscriptionSpeak `json:"user,omitempty"`
}

// TranscriptionSpeak identifies the speaker of a transcription fragment.
type TranscriptionSpeak struct {
	ID string `json:"id,omitempty"`
}

// ParseCallWebhookEvent decodes a raw webhook body. Unknown event types parse
// successfully into an event whose Type the dispatcher will acknowledge
// without processing.
func ParseCallWebhookEvent(rawBody []byte) (*CallWebhookEvent, error) {
	var event CallWebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// MeetingUID resolves the meeting identifier from the event using ordered
// fallback paths: call.custom.meetingId, then the call CID (either location)
// split on ":", then the session ID, then a top-level meeting_id. Returns ""
// only when every fallback misses.
func (e *CallWebhookEvent) MeetingUID() string {
	if e.Call != nil {
		if id, ok := e.Call.Custom["meetingId"].(string); ok && id != "" {
			return id
		}
		if id := meetingUIDFromCID(e.Call.CID); id != "" {
			return id
		}
	}
	if id := meetingUIDFromCID(e.CallCID); id != "" {
		return id
	}
	if e.SessionID != "" {
		return e.SessionID
	}
	if e.Call != nil && e.Call.SessionID != "" {
		return e.Call.SessionID
	}
	return e.MeetingID
}

// TranscriptURL resolves the transcript artifact URL using ordered fallback
// paths across the known payload shapes.
func (e *CallWebhookEvent) TranscriptURL() string {
	if e.CallTranscription != nil && e.CallTranscription.URL != "" {
		return e.CallTranscription.URL
	}
	if e.Transcription != nil && e.Transcription.URL != "" {
		return e.Transcription.URL
	}
	return e.URL
}

// RecordingURL resolves the recording artifact URL using ordered fallback
// paths across the known payload shapes.
func (e *CallWebhookEvent) RecordingURL() string {
	if e.CallRecording != nil && e.CallRecording.URL != "" {
		return e.CallRecording.URL
	}
	if e.Recording != nil && e.Recording.URL != "" {
		return e.Recording.URL
	}
	return e.URL
}

// SpeakerFragment returns the live transcription text and speaker ID if both
// are present, used for best-effort verbal-response nudges.
func (e *CallWebhookEvent) SpeakerFragment() (speakerID, text string, ok bool) {
	if e.Transcription == nil || e.Transcription.User == nil {
		return "", "", false
	}
	if e.Transcription.Text == "" || e.Transcription.User.ID == "" {
		return "", "", false
	}
	return e.Transcription.User.ID, e.Transcription.Text, true
}

// meetingUIDFromCID splits a composite call identifier such as
// "default:6a1f..." and returns the ID portion.
func meetingUIDFromCID(cid string) string {
	if cid == "" {
		return ""
	}
	parts := strings.SplitN(cid, ":", 2)
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return ""
}
