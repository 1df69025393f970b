// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

// Package handlers contains the NATS message handlers of the service.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
	"github.com/meetwise-ai/meeting-agent-service/internal/service"
)

// TranscriptJobHandler consumes transcript pipeline jobs from the durable
// work queue and runs them through the processor. Acking removes the job;
// naking schedules redelivery, which is the pipeline's retry mechanism.
type TranscriptJobHandler struct {
	processor *service.TranscriptProcessor
}

// NewTranscriptJobHandler creates a new TranscriptJobHandler.
func NewTranscriptJobHandler(processor *service.TranscriptProcessor) *TranscriptJobHandler {
	return &TranscriptJobHandler{
		processor: processor,
	}
}

var _ domain.JobHandler = (*TranscriptJobHandler)(nil)

// HandlerReady checks if the handler is ready to process messages.
func (h *TranscriptJobHandler) HandlerReady() bool {
	return h.processor != nil && h.processor.ServiceReady()
}

// HandleJob processes one queued transcript job.
func (h *TranscriptJobHandler) HandleJob(ctx context.Context, msg domain.JobMessage) {
	if !h.HandlerReady() {
		slog.ErrorContext(ctx, "transcript job handler not ready", logging.PriorityCritical())
		h.nak(ctx, msg)
		return
	}

	var job models.TranscriptJobMessage
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		// A payload that cannot parse will never parse; drop it.
		slog.ErrorContext(ctx, "invalid transcript job payload, dropping",
			logging.ErrKey, err, "subject", msg.Subject())
		h.ack(ctx, msg)
		return
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", job.MeetingUID))
	slog.DebugContext(ctx, "processing transcript job",
		"delivery_attempt", msg.DeliveryAttempt())

	if err := h.processor.ProcessTranscript(ctx, job); err != nil {
		slog.ErrorContext(ctx, "transcript job failed, requesting redelivery",
			logging.ErrKey, err,
			"delivery_attempt", msg.DeliveryAttempt(),
		)
		h.nak(ctx, msg)
		return
	}

	h.ack(ctx, msg)
}

func (h *TranscriptJobHandler) ack(ctx context.Context, msg domain.JobMessage) {
	if err := msg.Ack(); err != nil {
		slog.WarnContext(ctx, "failed to ack message", logging.ErrKey, err,
			"subject", msg.Subject())
	}
}

func (h *TranscriptJobHandler) nak(ctx context.Context, msg domain.JobMessage) {
	if err := msg.Nak(); err != nil {
		slog.WarnContext(ctx, "failed to nak message", logging.ErrKey, err,
			"subject", msg.Subject())
	}
}
