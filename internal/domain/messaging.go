// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

// JobMessage represents a durable queue message. Ack removes the message from
// the work queue; Nak schedules redelivery so the host retries the job.
type JobMessage interface {
	Subject() string
	Data() []byte
	Ack() error
	Nak() error
	DeliveryAttempt() uint64
}

// JobHandler defines how the service handles incoming queue messages.
type JobHandler interface {
	HandleJob(ctx context.Context, msg JobMessage)
	HandlerReady() bool
}

// TranscriptJobSender publishes transcript pipeline triggers. Publishing is
// fire-and-forget from the webhook dispatcher's point of view: the HTTP
// handler never blocks on pipeline execution.
type TranscriptJobSender interface {
	SendTranscriptJob(ctx context.Context, job models.TranscriptJobMessage) error
}

// MeetingEventSender publishes best-effort lifecycle change notifications.
type MeetingEventSender interface {
	SendMeetingUpdated(ctx context.Context, msg models.MeetingUpdatedMessage) error
}

// MessageBuilder composes all messaging capabilities of the service.
type MessageBuilder interface {
	TranscriptJobSender
	MeetingEventSender
}
