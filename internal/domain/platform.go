// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"
)

// CallSettings configures the vendor call created for a meeting.
type CallSettings struct {
	MeetingUID       string
	Title            string
	CreatedByUserUID string
	Transcription    bool
	Recording        bool
}

// VideoPlatform is the video-calling vendor consumed as an opaque service.
// The meeting UID is used directly as the vendor call identifier.
type VideoPlatform interface {
	// CreateCall creates (or reuses) the vendor call for a meeting and
	// stamps the meeting UID into the call's custom data.
	CreateCall(ctx context.Context, settings CallSettings) error
	// EndCall terminates the live call session for the meeting.
	EndCall(ctx context.Context, meetingUID string) error
	// UpsertUser registers a call participant identity with the vendor,
	// used to enroll agents as call users.
	UpsertUser(ctx context.Context, userUID, name, role string) error
	// IssueToken returns a signed token the client SDK presents to join
	// the call as the given user.
	IssueToken(userUID string, expiresIn time.Duration) (string, error)
}

// RealtimeSession is a live voice-agent session bound to a call. Pushing
// instructions replaces the active directive, which makes repeated pushes
// naturally idempotent.
type RealtimeSession interface {
	UpdateInstructions(ctx context.Context, instructions string) error
}

// RealtimeProvider binds a configured voice agent to a live call. Connect
// must be idempotent under retry: a second Connect for the same meeting
// returns the existing session rather than opening a duplicate one.
type RealtimeProvider interface {
	Connect(ctx context.Context, meetingUID, agentUserUID string) (RealtimeSession, error)
	Disconnect(ctx context.Context, meetingUID string)
}

// TranscriptFetcher downloads a raw transcript artifact from the vendor's
// signed URL.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, url string) ([]byte, error)
}

// Summarizer invokes a language model with a system prompt and user prompt
// and returns the generated text.
type Summarizer interface {
	Run(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
