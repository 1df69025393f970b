// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

// INatsConn is the NATS connection interface needed for core publishes.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// IJetStreamPublisher is the JetStream interface needed for durable publishes.
// It matches jetstream.JetStream and allows for mocking in tests.
type IJetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// MessageBuilder builds messages and sends them to the NATS server. Transcript
// jobs go through JetStream so they survive restarts and get redelivered on
// failure; lifecycle notifications are best-effort core publishes.
type MessageBuilder struct {
	NatsConn  INatsConn
	JetStream IJetStreamPublisher
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn, js IJetStreamPublisher) *MessageBuilder {
	return &MessageBuilder{
		NatsConn:  natsConn,
		JetStream: js,
	}
}

// sendMessage sends the message to the NATS server.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// SendTranscriptJob publishes a transcript processing job to the durable work
// queue. The publish is acknowledged by the stream before this returns.
func (m *MessageBuilder) SendTranscriptJob(ctx context.Context, job models.TranscriptJobMessage) error {
	if m.JetStream == nil {
		return domain.NewUnavailableError("message builder has no JetStream context")
	}

	dataBytes, err := json.Marshal(job)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling transcript job into JSON", logging.ErrKey, err)
		return err
	}

	// Meeting UID as the message ID deduplicates redundant triggers for the
	// same meeting within the stream's duplicate window.
	_, err = m.JetStream.Publish(ctx, models.TranscriptProcessSubject, dataBytes,
		jetstream.WithMsgID(job.MeetingUID))
	if err != nil {
		slog.ErrorContext(ctx, "error publishing transcript job to JetStream", logging.ErrKey, err,
			"subject", models.TranscriptProcessSubject,
			"meeting_uid", job.MeetingUID,
		)
		return domain.NewUnavailableError("failed to publish transcript job", err)
	}

	slog.DebugContext(ctx, "published transcript job",
		"subject", models.TranscriptProcessSubject,
		"meeting_uid", job.MeetingUID,
	)
	return nil
}

// SendMeetingUpdated sends a message about a meeting lifecycle change.
func (m *MessageBuilder) SendMeetingUpdated(ctx context.Context, data models.MeetingUpdatedMessage) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}

	return m.sendMessage(ctx, models.MeetingUpdatedSubject, dataBytes)
}
