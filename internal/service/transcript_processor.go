// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
	"github.com/meetwise-ai/meeting-agent-service/pkg/concurrent"
	"github.com/meetwise-ai/meeting-agent-service/pkg/utils"
)

// summarySystemPrompt is the fixed system prompt for transcript
// summarization. The markdown structure it mandates is what the client
// renders on the meeting page.
const summarySystemPrompt = `You are an expert summarizer. You write readable, concise, simple content. You are given a transcript of a meeting and you need to summarize it.
Instructions:
Use the following markdown structure for every output:
### Overview
Provide a detailed, engaging summary of the session's content. Focus on major features, user workflows, and any key takeaways. Write in a narrative style, using full sentences.
### Notes
Break down key content into thematic sections with timestamp ranges. Each section should summarize key points, actions, or demos in bullet format.
  #### Section Name
  - Main point or demo shown here
  - Another key insight or interaction
  - Follow-up tool or explanation provided

  #### Next Section
  - Feature X automatically does Y
  - Mention of integration with Z`

// speakerLookupWorkers bounds the fan-out of per-speaker store lookups.
const speakerLookupWorkers = 4

// unknownSpeakerName labels transcript lines whose speaker cannot be
// resolved against the user or agent stores.
const unknownSpeakerName = "Unknown"

// TranscriptProcessor is the summarization pipeline. It consumes transcript
// jobs, turns the raw vendor transcript into an attributed plain-text
// rendition, asks the summarizer for a markdown summary, and closes the
// meeting out as completed.
//
// The pipeline runs under at-least-once delivery, so every step tolerates
// re-invocation. Whatever goes wrong, the meeting must never stay stuck in
// processing: hard failures are converted into a completed meeting with a
// failure note as its summary.
type TranscriptProcessor struct {
	MeetingService  *MeetingService
	AgentRepository domain.AgentRepository
	UserRepository  domain.UserRepository
	Fetcher         domain.TranscriptFetcher
	Summarizer      domain.Summarizer
}

// NewTranscriptProcessor creates a new TranscriptProcessor.
func NewTranscriptProcessor(
	meetingService *MeetingService,
	agentRepository domain.AgentRepository,
	userRepository domain.UserRepository,
	fetcher domain.TranscriptFetcher,
	summarizer domain.Summarizer,
) *TranscriptProcessor {
	return &TranscriptProcessor{
		MeetingService:  meetingService,
		AgentRepository: agentRepository,
		UserRepository:  userRepository,
		Fetcher:         fetcher,
		Summarizer:      summarizer,
	}
}

// ServiceReady checks if the processor is ready for use.
func (p *TranscriptProcessor) ServiceReady() bool {
	return p.MeetingService != nil &&
		p.AgentRepository != nil &&
		p.UserRepository != nil &&
		p.Fetcher != nil &&
		p.Summarizer != nil
}

// ProcessTranscript runs the pipeline for one job. A returned error means
// the meeting could not be moved to a terminal state at all and the job
// should be redelivered.
func (p *TranscriptProcessor) ProcessTranscript(ctx context.Context, job models.TranscriptJobMessage) error {
	if !p.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.NewUnavailableError("transcript processor is not ready")
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", job.MeetingUID))

	err := p.run(ctx, job)
	if err == nil {
		return nil
	}

	// A meeting that no longer exists has nothing to close out; let the
	// queue retry in case the read failed transiently.
	if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return err
	}

	// Backstop: force the meeting to completed with a failure note so it
	// never sits in processing forever.
	slog.ErrorContext(ctx, "transcript pipeline failed, completing with failure note",
		logging.ErrKey, err, logging.PriorityCritical())

	failureNote := fmt.Sprintf("Failed to generate summary: %s", err.Error())
	if _, completeErr := p.MeetingService.CompleteWithSummary(ctx, job.MeetingUID, failureNote); completeErr != nil {
		slog.ErrorContext(ctx, "failed to persist pipeline failure note",
			logging.ErrKey, completeErr, logging.PriorityCritical())
		return completeErr
	}
	return nil
}

// run executes the pipeline steps and returns the first hard failure.
func (p *TranscriptProcessor) run(ctx context.Context, job models.TranscriptJobMessage) error {
	meeting, err := p.MeetingService.MeetingRepository.Get(ctx, job.MeetingUID)
	if err != nil {
		return err
	}

	// Redelivered job for a meeting that already closed out: zero writes.
	if meeting.Status == models.MeetingStatusCompleted && meeting.HasSummary() {
		slog.InfoContext(ctx, "meeting already summarized, skipping")
		return nil
	}

	if _, err := p.MeetingService.MarkProcessing(ctx, job.MeetingUID); err != nil {
		return err
	}

	transcriptURL := utils.CoalesceString(job.TranscriptURL, meeting.TranscriptURL)
	if transcriptURL == "" {
		return fmt.Errorf("no transcript URL for meeting")
	}

	raw, err := p.Fetcher.FetchTranscript(ctx, transcriptURL)
	if err != nil {
		return fmt.Errorf("failed to fetch transcript: %w", err)
	}

	items, dropped := models.ParseTranscriptJSONL(string(raw))
	if dropped > 0 {
		slog.WarnContext(ctx, "dropped unusable transcript records", "dropped", dropped)
	}
	if len(items) == 0 {
		return fmt.Errorf("transcript has no usable records")
	}

	attributed, err := p.attributeSpeakers(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to attribute speakers: %w", err)
	}

	summary, err := p.Summarizer.Run(ctx, summarySystemPrompt,
		"Summarize the following transcript: "+formatTranscript(attributed))
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	if strings.TrimSpace(summary) == "" {
		return fmt.Errorf("summarizer returned empty output")
	}

	if _, err := p.MeetingService.CompleteWithSummary(ctx, job.MeetingUID, summary); err != nil {
		return fmt.Errorf("failed to persist summary: %w", err)
	}

	slog.InfoContext(ctx, "transcript processed",
		"records", len(items),
		"summary_length", len(summary),
	)
	return nil
}

// resolvedSpeaker is the outcome of one speaker lookup.
type resolvedSpeaker struct {
	Name string
	Type string
}

// attributeSpeakers resolves every distinct speaker ID against the user
// store, then the agent store, then a token heuristic on the raw identifier.
// Lookups fan out over a worker pool; a missing record is not an error.
func (p *TranscriptProcessor) attributeSpeakers(ctx context.Context, items []models.TranscriptItem) ([]models.AttributedTranscriptItem, error) {
	speakerIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, item := range items {
		if !seen[item.SpeakerID] {
			seen[item.SpeakerID] = true
			speakerIDs = append(speakerIDs, item.SpeakerID)
		}
	}

	var mu sync.Mutex
	speakers := make(map[string]resolvedSpeaker, len(speakerIDs))

	lookups := make([]func() error, 0, len(speakerIDs))
	for _, speakerID := range speakerIDs {
		lookups = append(lookups, func() error {
			resolved := p.resolveSpeaker(ctx, speakerID)
			mu.Lock()
			speakers[speakerID] = resolved
			mu.Unlock()
			return nil
		})
	}

	pool := concurrent.NewWorkerPool(speakerLookupWorkers)
	if err := pool.Run(ctx, lookups...); err != nil {
		return nil, err
	}

	attributed := make([]models.AttributedTranscriptItem, len(items))
	for i, item := range items {
		speaker := speakers[item.SpeakerID]
		attributed[i] = models.AttributedTranscriptItem{
			TranscriptItem: item,
			SpeakerName:    speaker.Name,
			SpeakerType:    speaker.Type,
		}
	}
	return attributed, nil
}

// resolveSpeaker maps one speaker ID to a display name and speaker type.
func (p *TranscriptProcessor) resolveSpeaker(ctx context.Context, speakerID string) resolvedSpeaker {
	if user, err := p.UserRepository.Get(ctx, speakerID); err == nil {
		return resolvedSpeaker{Name: user.Name, Type: models.SpeakerTypeUser}
	} else if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		slog.WarnContext(ctx, "user lookup failed during speaker attribution",
			logging.ErrKey, err, "speaker_id", speakerID)
	}

	if agent, err := p.AgentRepository.Get(ctx, speakerID); err == nil {
		return resolvedSpeaker{Name: agent.Name, Type: models.SpeakerTypeAgent}
	} else if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		slog.WarnContext(ctx, "agent lookup failed during speaker attribution",
			logging.ErrKey, err, "speaker_id", speakerID)
	}

	return resolvedSpeaker{
		Name: unknownSpeakerName,
		Type: models.GuessSpeakerType(speakerID),
	}
}

// formatTranscript renders attributed records as "Speaker: text" lines in
// their original order.
func formatTranscript(items []models.AttributedTranscriptItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.SpeakerName)
		b.WriteString(": ")
		b.WriteString(item.Text)
		b.WriteString("\n")
	}
	return b.String()
}
