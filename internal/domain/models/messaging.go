// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package models

// NATS subjects used by the meeting agent service.
const (
	// TranscriptProcessSubject triggers the transcript summarization
	// pipeline. Published fire-and-forget by the webhook dispatcher and
	// consumed by a durable work-queue subscriber.
	TranscriptProcessSubject = "meetings.transcript.process"

	// MeetingUpdatedSubject announces meeting lifecycle changes for any
	// interested subscriber (best-effort notification fan-out).
	MeetingUpdatedSubject = "meetings.meeting.updated"
)

// TranscriptStreamName is the JetStream stream backing transcript jobs.
const TranscriptStreamName = "MEETINGS-TRANSCRIPTS"

// TranscriptConsumerName is the durable consumer for transcript jobs.
const TranscriptConsumerName = "transcript-processor"

// TranscriptJobMessage is the payload of a transcript pipeline trigger.
type TranscriptJobMessage struct {
	MeetingUID    string `json:"meeting_uid"`
	TranscriptURL string `json:"transcript_url"`
}

// MeetingUpdatedMessage announces a meeting status change.
type MeetingUpdatedMessage struct {
	MeetingUID string        `json:"meeting_uid"`
	UserUID    string        `json:"user_uid"`
	Status     MeetingStatus `json:"status"`
}
