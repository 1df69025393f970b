// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

// Agent nudge directives pushed over the realtime session. The vendor's
// voice bridge defaults to text output unless told otherwise, hence the
// insistence on verbal responses.
const (
	verbalResponseInstructions = `IMPORTANT: You must respond VERBALLY to the user. The user just said: %q. Respond conversationally and naturally. Always use your voice to respond, not text. This is critical: YOU MUST RESPOND VERBALLY.`

	introduceInstructions = `IMPORTANT: You must respond VERBALLY to the user. Introduce yourself and welcome the user to the call. Speak naturally and conversationally. Always use your voice to respond, not text. This is critical: YOU MUST RESPOND VERBALLY.`

	wakeUpInstructions = `IMPORTANT: You must respond VERBALLY to the user IMMEDIATELY. Say hello, introduce yourself, and ask how you can help. Speak naturally and conversationally. Always use your voice to respond, not text. This is critical: YOU MUST RESPOND VERBALLY.`
)

// WebhookEventService routes verified webhook events to their handlers.
//
// Events split into two tiers. Primary events (session started, participant
// left) drive the call lifecycle: their failures surface to the vendor as
// HTTP errors so the vendor retries delivery. Everything else is best-effort:
// failures are logged and the delivery is acknowledged, because a retry storm
// over a nudge or an artifact URL is worse than losing one.
type WebhookEventService struct {
	MeetingService       *MeetingService
	AgentRepository      domain.AgentRepository
	MessageBuilder       domain.MessageBuilder
	Realtime             domain.RealtimeProvider
	SummarizerConfigured bool
}

// NewWebhookEventService creates a new WebhookEventService.
func NewWebhookEventService(
	meetingService *MeetingService,
	agentRepository domain.AgentRepository,
	messageBuilder domain.MessageBuilder,
	realtime domain.RealtimeProvider,
	summarizerConfigured bool,
) *WebhookEventService {
	return &WebhookEventService{
		MeetingService:       meetingService,
		AgentRepository:      agentRepository,
		MessageBuilder:       messageBuilder,
		Realtime:             realtime,
		SummarizerConfigured: summarizerConfigured,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *WebhookEventService) ServiceReady() bool {
	return s.MeetingService != nil &&
		s.AgentRepository != nil &&
		s.MessageBuilder != nil &&
		s.Realtime != nil
}

// HandleEvent parses a verified webhook body and dispatches it. The returned
// error, if any, is a DomainError the API layer maps to an HTTP status.
// Unknown event types are acknowledged without processing.
func (s *WebhookEventService) HandleEvent(ctx context.Context, rawBody []byte) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.NewUnavailableError("webhook service is not ready")
	}

	event, err := models.ParseCallWebhookEvent(rawBody)
	if err != nil {
		slog.WarnContext(ctx, "invalid webhook payload", logging.ErrKey, err)
		return domain.NewValidationError("invalid webhook payload", err)
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", event.Type))
	slog.DebugContext(ctx, "dispatching webhook event")

	switch event.Type {
	case models.CallSessionStartedEvent:
		return s.handleSessionStarted(ctx, event)
	case models.CallSessionParticipantLeftEvent:
		return s.handleParticipantLeft(ctx, event)
	case models.CallEndedEvent:
		return s.bestEffort(ctx, event, s.handleCallEnded)
	case models.CallTranscriptionReadyEvent:
		return s.bestEffort(ctx, event, s.handleTranscriptionReady)
	case models.CallRecordingReadyEvent:
		return s.bestEffort(ctx, event, s.handleRecordingReady)
	case models.CallTranscriptionStartedEvent:
		return s.bestEffort(ctx, event, s.handleTranscriptionStarted)
	case models.AgentWakeUpEvent:
		return s.bestEffort(ctx, event, s.handleAgentWakeUp)
	default:
		slog.DebugContext(ctx, "ignoring unhandled webhook event type")
		return nil
	}
}

// bestEffort runs a handler whose failure must not fail the delivery.
func (s *WebhookEventService) bestEffort(ctx context.Context, event *models.CallWebhookEvent, fn func(context.Context, *models.CallWebhookEvent) error) error {
	if err := fn(ctx, event); err != nil {
		slog.ErrorContext(ctx, "best-effort webhook handler failed", logging.ErrKey, err)
	}
	return nil
}

// handleSessionStarted moves the meeting to active and joins the voice agent
// to the call with its stored instructions.
func (s *WebhookEventService) handleSessionStarted(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return domain.NewValidationError("missing meeting ID in webhook event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	meeting, _, err := s.MeetingService.ApplyTransition(ctx, meetingUID, models.MeetingStatusActive)
	if err != nil {
		return err
	}

	// Agents are required at creation; this guards records predating that.
	if meeting.AgentUID == "" {
		return domain.NewValidationError("meeting has no associated agent")
	}

	agent, err := s.AgentRepository.Get(ctx, meeting.AgentUID)
	if err != nil {
		return err
	}

	if !s.SummarizerConfigured {
		slog.ErrorContext(ctx, "realtime agent API key is not configured", logging.PriorityCritical())
		return domain.NewInternalError("realtime agent API key is not configured")
	}

	session, err := s.Realtime.Connect(ctx, meetingUID, agent.UID)
	if err != nil {
		return domain.NewInternalError("failed to connect agent to call", err)
	}
	if err := session.UpdateInstructions(ctx, agent.Instructions); err != nil {
		return domain.NewInternalError("failed to set agent instructions", err)
	}

	slog.InfoContext(ctx, "agent joined meeting", "agent_uid", agent.UID)
	return nil
}

// handleParticipantLeft ends the call and moves the meeting to processing.
// The transcript pipeline later closes it out as completed.
func (s *WebhookEventService) handleParticipantLeft(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return domain.NewValidationError("missing meeting ID in webhook event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	if err := s.MeetingService.Platform.EndCall(ctx, meetingUID); err != nil {
		return domain.NewInternalError("failed to end call", err)
	}

	if _, _, err := s.MeetingService.ApplyTransition(ctx, meetingUID, models.MeetingStatusProcessing); err != nil {
		return err
	}

	s.Realtime.Disconnect(ctx, meetingUID)
	return nil
}

// handleCallEnded converges the meeting to processing when the vendor
// reports the call over. Usually a duplicate of participant_left.
func (s *WebhookEventService) handleCallEnded(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return fmt.Errorf("missing meeting ID in call ended event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	if _, _, err := s.MeetingService.ApplyTransition(ctx, meetingUID, models.MeetingStatusProcessing); err != nil {
		return err
	}

	s.Realtime.Disconnect(ctx, meetingUID)
	return nil
}

// handleTranscriptionReady persists the transcript artifact URL and triggers
// the summarization pipeline. When the event carries a live speech fragment
// instead, the agent is nudged to answer out loud.
func (s *WebhookEventService) handleTranscriptionReady(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return fmt.Errorf("missing meeting ID in transcription event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	if url := event.TranscriptURL(); url != "" {
		if err := s.MeetingService.SetTranscriptURL(ctx, meetingUID, url); err != nil {
			return err
		}
		err := s.MessageBuilder.SendTranscriptJob(ctx, models.TranscriptJobMessage{
			MeetingUID:    meetingUID,
			TranscriptURL: url,
		})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "queued transcript for processing")
	}

	if speakerID, text, ok := event.SpeakerFragment(); ok {
		slog.DebugContext(ctx, "live transcription fragment received", "speaker_id", speakerID)
		return s.nudgeAgent(ctx, meetingUID, fmt.Sprintf(verbalResponseInstructions, text))
	}

	return nil
}

// handleRecordingReady persists the recording artifact URL.
func (s *WebhookEventService) handleRecordingReady(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return fmt.Errorf("missing meeting ID in recording event")
	}
	url := event.RecordingURL()
	if url == "" {
		return fmt.Errorf("missing recording URL in recording event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	if err := s.MeetingService.SetRecordingURL(ctx, meetingUID, url); err != nil {
		return err
	}
	slog.InfoContext(ctx, "recorded recording URL")
	return nil
}

// handleTranscriptionStarted nudges the agent to introduce itself once the
// vendor starts transcribing the session.
func (s *WebhookEventService) handleTranscriptionStarted(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return fmt.Errorf("missing meeting ID in transcription started event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	return s.nudgeAgent(ctx, meetingUID, introduceInstructions)
}

// handleAgentWakeUp nudges a silent agent to greet the participants.
func (s *WebhookEventService) handleAgentWakeUp(ctx context.Context, event *models.CallWebhookEvent) error {
	meetingUID := event.MeetingUID()
	if meetingUID == "" {
		return fmt.Errorf("missing meeting ID in wake-up event")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meetingUID))

	return s.nudgeAgent(ctx, meetingUID, wakeUpInstructions)
}

// nudgeAgent connects to the meeting's live agent session (reusing it when
// already connected) and replaces the active directive.
func (s *WebhookEventService) nudgeAgent(ctx context.Context, meetingUID, instructions string) error {
	meeting, err := s.MeetingService.MeetingRepository.Get(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.AgentUID == "" {
		return fmt.Errorf("meeting has no associated agent")
	}

	session, err := s.Realtime.Connect(ctx, meetingUID, meeting.AgentUID)
	if err != nil {
		return err
	}
	if err := session.UpdateInstructions(ctx, instructions); err != nil {
		return err
	}

	slog.DebugContext(ctx, "nudged agent", "agent_uid", meeting.AgentUID)
	return nil
}
