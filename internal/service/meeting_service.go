// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

const (
	// maxTransitionRetries bounds the compare-and-set retry loop for status
	// writes. Conflicts come from concurrent webhook deliveries for the same
	// meeting and converge quickly.
	maxTransitionRetries = 3

	// defaultJoinTokenExpiry is how long an issued call join token is valid.
	defaultJoinTokenExpiry = time.Hour

	defaultPageSize = 10
	maxPageSize     = 100
)

// ServiceConfig holds the business configuration shared by the services.
type ServiceConfig struct {
	// JoinTokenExpiry is the validity window of issued call join tokens.
	JoinTokenExpiry time.Duration
	// FreeTierMaxMeetings caps how many meetings one user may create.
	// Zero means unlimited.
	FreeTierMaxMeetings int
	// FreeTierMaxAgents caps how many agents one user may create.
	// Zero means unlimited.
	FreeTierMaxAgents int
}

// CreateMeetingRequest is the payload for creating a meeting.
type CreateMeetingRequest struct {
	Title    string `json:"title"`
	AgentUID string `json:"agent_uid"`
}

// UpdateMeetingRequest is the payload for updating an upcoming meeting.
// Nil fields are left unchanged.
type UpdateMeetingRequest struct {
	Title    *string `json:"title,omitempty"`
	AgentUID *string `json:"agent_uid,omitempty"`
}

// MeetingFilter narrows and pages meeting listings.
type MeetingFilter struct {
	Status   models.MeetingStatus
	AgentUID string
	Page     int
	PageSize int
}

// MeetingService owns the meeting lifecycle: CRUD, the status state machine,
// call bootstrap on the video platform, and join token issuance.
type MeetingService struct {
	MeetingRepository domain.MeetingRepository
	AgentRepository   domain.AgentRepository
	MessageBuilder    domain.MessageBuilder
	Platform          domain.VideoPlatform
	Config            ServiceConfig
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(
	meetingRepository domain.MeetingRepository,
	agentRepository domain.AgentRepository,
	messageBuilder domain.MessageBuilder,
	platform domain.VideoPlatform,
	config ServiceConfig,
) *MeetingService {
	if config.JoinTokenExpiry == 0 {
		config.JoinTokenExpiry = defaultJoinTokenExpiry
	}
	return &MeetingService{
		MeetingRepository: meetingRepository,
		AgentRepository:   agentRepository,
		MessageBuilder:    messageBuilder,
		Platform:          platform,
		Config:            config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MeetingService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.AgentRepository != nil &&
		s.MessageBuilder != nil &&
		s.Platform != nil
}

// CreateMeeting creates a meeting in the upcoming status and bootstraps its
// call on the video platform. The meeting UID doubles as the vendor call ID,
// and is stamped into the call's custom data so webhook events can always be
// resolved back to the meeting.
func (s *MeetingService) CreateMeeting(ctx context.Context, userUID string, req CreateMeetingRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("meeting service is not ready")
	}

	if req.Title == "" {
		return nil, domain.NewValidationError("meeting title is required")
	}
	if req.AgentUID == "" {
		return nil, domain.NewValidationError("meeting agent is required")
	}

	agent, err := s.AgentRepository.Get(ctx, req.AgentUID)
	if err != nil {
		return nil, err
	}
	if agent.UserUID != userUID {
		return nil, domain.NewForbiddenError("agent belongs to a different user")
	}

	if err := s.checkMeetingQuota(ctx, userUID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meeting := &models.Meeting{
		UID:       uuid.New().String(),
		Title:     req.Title,
		AgentUID:  agent.UID,
		UserUID:   userUID,
		Status:    models.MeetingStatusUpcoming,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	err = s.Platform.CreateCall(ctx, domain.CallSettings{
		MeetingUID:       meeting.UID,
		Title:            meeting.Title,
		CreatedByUserUID: userUID,
		Transcription:    true,
		Recording:        true,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create call for meeting", logging.ErrKey, err,
			"meeting_uid", meeting.UID)
		return nil, err
	}

	// The agent joins calls as a regular vendor user.
	err = s.Platform.UpsertUser(ctx, agent.UID, agent.Name, "user")
	if err != nil {
		slog.ErrorContext(ctx, "failed to enroll agent as call user", logging.ErrKey, err,
			"meeting_uid", meeting.UID, "agent_uid", agent.UID)
		return nil, err
	}

	err = s.MeetingRepository.Create(ctx, meeting)
	if err != nil {
		// Best-effort cleanup of the vendor call.
		if endErr := s.Platform.EndCall(ctx, meeting.UID); endErr != nil {
			slog.ErrorContext(ctx, "failed to clean up call after repository error",
				logging.ErrKey, endErr,
				"meeting_uid", meeting.UID,
				logging.PriorityCritical())
		}
		return nil, err
	}

	s.publishMeetingUpdated(ctx, meeting)

	slog.InfoContext(ctx, "created meeting",
		"meeting_uid", meeting.UID,
		"agent_uid", meeting.AgentUID,
	)
	return meeting, nil
}

// GetMeeting fetches one meeting owned by the user. Meetings of other users
// are reported as not found rather than forbidden.
func (s *MeetingService) GetMeeting(ctx context.Context, userUID, meetingUID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("meeting service is not ready")
	}

	meeting, err := s.MeetingRepository.Get(ctx, meetingUID)
	if err != nil {
		return nil, err
	}
	if meeting.UserUID != userUID {
		return nil, domain.NewNotFoundError("meeting not found")
	}
	return meeting, nil
}

// ListMeetings returns the user's meetings matching the filter, newest first.
func (s *MeetingService) ListMeetings(ctx context.Context, userUID string, filter MeetingFilter) ([]*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("meeting service is not ready")
	}

	all, err := s.MeetingRepository.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var meetings []*models.Meeting
	for _, m := range all {
		if m.UserUID != userUID {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.AgentUID != "" && m.AgentUID != filter.AgentUID {
			continue
		}
		meetings = append(meetings, m)
	}

	sort.Slice(meetings, func(i, j int) bool {
		ti, tj := meetings[i].CreatedAt, meetings[j].CreatedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})

	return paginate(meetings, filter.Page, filter.PageSize), nil
}

// UpdateMeeting updates an upcoming meeting's title or agent.
func (s *MeetingService) UpdateMeeting(ctx context.Context, userUID, meetingUID string, req UpdateMeetingRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("meeting service is not ready")
	}

	meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return nil, err
	}
	if meeting.UserUID != userUID {
		return nil, domain.NewNotFoundError("meeting not found")
	}
	if meeting.Status != models.MeetingStatusUpcoming {
		return nil, domain.NewConflictError("only upcoming meetings can be updated")
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, domain.NewValidationError("meeting title cannot be empty")
		}
		meeting.Title = *req.Title
	}
	if req.AgentUID != nil {
		agent, err := s.AgentRepository.Get(ctx, *req.AgentUID)
		if err != nil {
			return nil, err
		}
		if agent.UserUID != userUID {
			return nil, domain.NewForbiddenError("agent belongs to a different user")
		}
		meeting.AgentUID = agent.UID
	}

	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	if err := s.MeetingRepository.Update(ctx, meeting, revision); err != nil {
		return nil, err
	}

	return meeting, nil
}

// DeleteMeeting removes a meeting. A live call is best-effort ended first.
func (s *MeetingService) DeleteMeeting(ctx context.Context, userUID, meetingUID string) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("meeting service is not ready")
	}

	meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.UserUID != userUID {
		return domain.NewNotFoundError("meeting not found")
	}

	if meeting.Status == models.MeetingStatusActive {
		if err := s.Platform.EndCall(ctx, meeting.UID); err != nil {
			slog.WarnContext(ctx, "failed to end call while deleting meeting",
				logging.ErrKey, err, "meeting_uid", meeting.UID)
		}
	}

	if err := s.MeetingRepository.Delete(ctx, meetingUID, revision); err != nil {
		return err
	}

	slog.InfoContext(ctx, "deleted meeting", "meeting_uid", meetingUID)
	return nil
}

// StartMeeting moves an upcoming meeting to active on behalf of its owner.
func (s *MeetingService) StartMeeting(ctx context.Context, userUID, meetingUID string) (*models.Meeting, error) {
	if err := s.checkOwnership(ctx, userUID, meetingUID); err != nil {
		return nil, err
	}
	meeting, _, err := s.ApplyTransition(ctx, meetingUID, models.MeetingStatusActive)
	return meeting, err
}

// LeaveMeeting ends the call for an active meeting and moves it to
// processing. The vendor also reports the departure through a webhook; both
// paths converge on the same transition.
func (s *MeetingService) LeaveMeeting(ctx context.Context, userUID, meetingUID string) (*models.Meeting, error) {
	if err := s.checkOwnership(ctx, userUID, meetingUID); err != nil {
		return nil, err
	}

	if err := s.Platform.EndCall(ctx, meetingUID); err != nil {
		slog.ErrorContext(ctx, "failed to end call", logging.ErrKey, err, "meeting_uid", meetingUID)
		return nil, err
	}

	meeting, _, err := s.ApplyTransition(ctx, meetingUID, models.MeetingStatusProcessing)
	return meeting, err
}

// CancelMeeting moves an upcoming meeting to cancelled.
func (s *MeetingService) CancelMeeting(ctx context.Context, userUID, meetingUID string) (*models.Meeting, error) {
	if err := s.checkOwnership(ctx, userUID, meetingUID); err != nil {
		return nil, err
	}
	meeting, _, err := s.ApplyTransition(ctx, meetingUID, models.MeetingStatusCancelled)
	return meeting, err
}

// IssueJoinToken enrolls the owner as a call participant and returns a signed
// token for the client SDK.
func (s *MeetingService) IssueJoinToken(ctx context.Context, userUID, userName, meetingUID string) (string, error) {
	if err := s.checkOwnership(ctx, userUID, meetingUID); err != nil {
		return "", err
	}

	if err := s.Platform.UpsertUser(ctx, userUID, userName, "admin"); err != nil {
		slog.ErrorContext(ctx, "failed to enroll user for join token", logging.ErrKey, err,
			"meeting_uid", meetingUID)
		return "", err
	}

	token, err := s.Platform.IssueToken(userUID, s.Config.JoinTokenExpiry)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue join token", logging.ErrKey, err,
			"meeting_uid", meetingUID)
		return "", err
	}
	return token, nil
}

// ApplyTransition moves a meeting along one lifecycle edge with optimistic
// concurrency. It returns the resulting meeting and whether anything was
// written. Duplicate or late deliveries that request the current status, or
// any transition on a terminal meeting, are no-ops. An edge outside the state
// machine is a conflict.
func (s *MeetingService) ApplyTransition(ctx context.Context, meetingUID string, next models.MeetingStatus) (*models.Meeting, bool, error) {
	if !s.ServiceReady() {
		return nil, false, domain.NewUnavailableError("meeting service is not ready")
	}

	for attempt := 0; ; attempt++ {
		meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
		if err != nil {
			return nil, false, err
		}

		changed, err := meeting.Transition(next, time.Now().UTC())
		if err != nil {
			return nil, false, domain.NewConflictError(err.Error())
		}
		if !changed {
			slog.DebugContext(ctx, "meeting transition is a no-op",
				"meeting_uid", meetingUID,
				"status", meeting.Status,
				"requested_status", next,
			)
			return meeting, false, nil
		}

		err = s.MeetingRepository.Update(ctx, meeting, revision)
		if err == nil {
			s.publishMeetingUpdated(ctx, meeting)
			slog.InfoContext(ctx, "meeting status changed",
				"meeting_uid", meetingUID,
				"status", meeting.Status,
			)
			return meeting, true, nil
		}
		if domain.GetErrorType(err) == domain.ErrorTypeConflict && attempt < maxTransitionRetries {
			slog.DebugContext(ctx, "meeting transition hit a revision conflict, retrying",
				"meeting_uid", meetingUID, "attempt", attempt+1)
			continue
		}
		return nil, false, err
	}
}

// SetTranscriptURL records the transcript artifact location on the meeting.
func (s *MeetingService) SetTranscriptURL(ctx context.Context, meetingUID, url string) error {
	return s.setArtifactURL(ctx, meetingUID, func(m *models.Meeting) { m.TranscriptURL = url })
}

// SetRecordingURL records the recording artifact location on the meeting.
func (s *MeetingService) SetRecordingURL(ctx context.Context, meetingUID, url string) error {
	return s.setArtifactURL(ctx, meetingUID, func(m *models.Meeting) { m.RecordingURL = url })
}

func (s *MeetingService) setArtifactURL(ctx context.Context, meetingUID string, set func(*models.Meeting)) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("meeting service is not ready")
	}

	for attempt := 0; ; attempt++ {
		meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
		if err != nil {
			return err
		}

		set(meeting)
		now := time.Now().UTC()
		meeting.UpdatedAt = &now

		err = s.MeetingRepository.Update(ctx, meeting, revision)
		if err == nil {
			return nil
		}
		if domain.GetErrorType(err) == domain.ErrorTypeConflict && attempt < maxTransitionRetries {
			continue
		}
		return err
	}
}

// MarkProcessing puts a meeting into processing on behalf of the transcript
// pipeline. Terminal meetings and meetings already processing are untouched.
// The pipeline is authoritative here: it sets processing even when the
// session_started webhook was lost and the meeting never reached active.
func (s *MeetingService) MarkProcessing(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("meeting service is not ready")
	}

	for attempt := 0; ; attempt++ {
		meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
		if err != nil {
			return nil, err
		}
		if meeting.Status.IsTerminal() || meeting.Status == models.MeetingStatusProcessing {
			return meeting, nil
		}

		now := time.Now().UTC()
		meeting.Status = models.MeetingStatusProcessing
		if meeting.EndedAt == nil {
			endedAt := now
			if meeting.StartedAt != nil && endedAt.Before(*meeting.StartedAt) {
				endedAt = *meeting.StartedAt
			}
			meeting.EndedAt = &endedAt
		}
		meeting.UpdatedAt = &now

		err = s.MeetingRepository.Update(ctx, meeting, revision)
		if err == nil {
			s.publishMeetingUpdated(ctx, meeting)
			return meeting, nil
		}
		if domain.GetErrorType(err) == domain.ErrorTypeConflict && attempt < maxTransitionRetries {
			continue
		}
		return nil, err
	}
}

// CompleteWithSummary closes out a meeting with its summary. A meeting that
// already completed with a summary is left untouched so redelivered pipeline
// jobs write nothing. After persisting, the record is read back and verified.
func (s *MeetingService) CompleteWithSummary(ctx context.Context, meetingUID, summary string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("meeting service is not ready")
	}

	for attempt := 0; ; attempt++ {
		meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
		if err != nil {
			return nil, err
		}
		if meeting.Status == models.MeetingStatusCompleted && meeting.HasSummary() {
			return meeting, nil
		}

		now := time.Now().UTC()
		meeting.Summary = summary
		meeting.Status = models.MeetingStatusCompleted
		if meeting.EndedAt == nil {
			meeting.EndedAt = &now
		}
		meeting.UpdatedAt = &now

		err = s.MeetingRepository.Update(ctx, meeting, revision)
		if err == nil {
			break
		}
		if domain.GetErrorType(err) == domain.ErrorTypeConflict && attempt < maxTransitionRetries {
			continue
		}
		return nil, err
	}

	// Read back to verify the terminal write landed.
	persisted, err := s.MeetingRepository.Get(ctx, meetingUID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify completed meeting", logging.ErrKey, err,
			"meeting_uid", meetingUID, logging.PriorityCritical())
		return nil, err
	}
	if persisted.Status != models.MeetingStatusCompleted {
		slog.ErrorContext(ctx, "meeting did not persist as completed",
			"meeting_uid", meetingUID,
			"status", persisted.Status,
			logging.PriorityCritical())
	}

	s.publishMeetingUpdated(ctx, persisted)
	slog.InfoContext(ctx, "meeting completed",
		"meeting_uid", meetingUID,
		"summary_length", len(persisted.Summary),
	)
	return persisted, nil
}

// checkOwnership verifies the meeting exists and belongs to the user.
func (s *MeetingService) checkOwnership(ctx context.Context, userUID, meetingUID string) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("meeting service is not ready")
	}
	meeting, err := s.MeetingRepository.Get(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.UserUID != userUID {
		return domain.NewNotFoundError("meeting not found")
	}
	return nil
}

func (s *MeetingService) checkMeetingQuota(ctx context.Context, userUID string) error {
	if s.Config.FreeTierMaxMeetings <= 0 {
		return nil
	}

	all, err := s.MeetingRepository.ListAll(ctx)
	if err != nil {
		return err
	}
	count := 0
	for _, m := range all {
		if m.UserUID == userUID {
			count++
		}
	}
	if count >= s.Config.FreeTierMaxMeetings {
		return domain.NewForbiddenError("free tier meeting limit reached")
	}
	return nil
}

// publishMeetingUpdated announces a lifecycle change. Failures are logged,
// never propagated: notifications are best-effort.
func (s *MeetingService) publishMeetingUpdated(ctx context.Context, meeting *models.Meeting) {
	err := s.MessageBuilder.SendMeetingUpdated(ctx, models.MeetingUpdatedMessage{
		MeetingUID: meeting.UID,
		UserUID:    meeting.UserUID,
		Status:     meeting.Status,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish meeting update", logging.ErrKey, err,
			"meeting_uid", meeting.UID)
	}
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
