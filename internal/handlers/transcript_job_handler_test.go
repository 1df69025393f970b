// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/mocks"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/service"
)

// fakeJobMessage implements domain.JobMessage and records ack/nak calls.
type fakeJobMessage struct {
	subject string
	data    []byte
	attempt uint64
	acked   bool
	naked   bool
	ackErr  error
	nakErr  error
}

func (m *fakeJobMessage) Subject() string         { return m.subject }
func (m *fakeJobMessage) Data() []byte            { return m.data }
func (m *fakeJobMessage) DeliveryAttempt() uint64 { return m.attempt }

func (m *fakeJobMessage) Ack() error {
	m.acked = true
	return m.ackErr
}

func (m *fakeJobMessage) Nak() error {
	m.naked = true
	return m.nakErr
}

func newTestJobHandler() (*TranscriptJobHandler, *mocks.MockMeetingRepository) {
	meetingRepo := &mocks.MockMeetingRepository{}
	agentRepo := &mocks.MockAgentRepository{}
	userRepo := &mocks.MockUserRepository{}
	messageBuilder := &mocks.MockMessageBuilder{}
	platform := &mocks.MockVideoPlatform{}
	fetcher := &mocks.MockTranscriptFetcher{}
	summarizer := &mocks.MockSummarizer{}

	meetingService := service.NewMeetingService(meetingRepo, agentRepo, messageBuilder, platform, service.ServiceConfig{})
	processor := service.NewTranscriptProcessor(meetingService, agentRepo, userRepo, fetcher, summarizer)

	return NewTranscriptJobHandler(processor), meetingRepo
}

func transcriptJobPayload(t *testing.T, meetingUID string) []byte {
	t.Helper()
	data, err := json.Marshal(models.TranscriptJobMessage{MeetingUID: meetingUID})
	require.NoError(t, err)
	return data
}

func TestTranscriptJobHandlerHandlerReady(t *testing.T) {
	t.Run("ready with a full processor", func(t *testing.T) {
		handler, _ := newTestJobHandler()
		assert.True(t, handler.HandlerReady())
	})

	t.Run("not ready without a processor", func(t *testing.T) {
		handler := NewTranscriptJobHandler(nil)
		assert.False(t, handler.HandlerReady())
	})
}

func TestTranscriptJobHandlerHandleJob(t *testing.T) {
	ctx := context.Background()

	t.Run("successful job is acked", func(t *testing.T) {
		handler, meetingRepo := newTestJobHandler()

		// A completed meeting with a summary short-circuits the pipeline.
		meetingRepo.On("Get", mock.Anything, "meeting-1").Return(&models.Meeting{
			UID:     "meeting-1",
			Status:  models.MeetingStatusCompleted,
			Summary: "### Overview\nDone.",
		}, nil)

		msg := &fakeJobMessage{subject: models.TranscriptProcessSubject, data: transcriptJobPayload(t, "meeting-1"), attempt: 1}
		handler.HandleJob(ctx, msg)

		assert.True(t, msg.acked)
		assert.False(t, msg.naked)
		meetingRepo.AssertExpectations(t)
	})

	t.Run("processor failure is naked for redelivery", func(t *testing.T) {
		handler, meetingRepo := newTestJobHandler()

		meetingRepo.On("Get", mock.Anything, "meeting-1").
			Return(nil, domain.NewInternalError("store unreachable"))
		// The failure backstop cannot write either, so the job comes back.
		meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").
			Return(nil, uint64(0), domain.NewInternalError("store unreachable"))

		msg := &fakeJobMessage{subject: models.TranscriptProcessSubject, data: transcriptJobPayload(t, "meeting-1"), attempt: 2}
		handler.HandleJob(ctx, msg)

		assert.True(t, msg.naked)
		assert.False(t, msg.acked)
	})

	t.Run("unparseable payload is dropped with an ack", func(t *testing.T) {
		handler, meetingRepo := newTestJobHandler()

		msg := &fakeJobMessage{subject: models.TranscriptProcessSubject, data: []byte("not json"), attempt: 1}
		handler.HandleJob(ctx, msg)

		assert.True(t, msg.acked)
		assert.False(t, msg.naked)
		meetingRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("unready handler naks", func(t *testing.T) {
		handler := NewTranscriptJobHandler(nil)

		msg := &fakeJobMessage{subject: models.TranscriptProcessSubject, data: transcriptJobPayload(t, "meeting-1"), attempt: 1}
		handler.HandleJob(ctx, msg)

		assert.True(t, msg.naked)
		assert.False(t, msg.acked)
	})

	t.Run("ack failure is tolerated", func(t *testing.T) {
		handler, meetingRepo := newTestJobHandler()

		meetingRepo.On("Get", mock.Anything, "meeting-1").Return(&models.Meeting{
			UID:     "meeting-1",
			Status:  models.MeetingStatusCompleted,
			Summary: "### Overview\nDone.",
		}, nil)

		msg := &fakeJobMessage{
			subject: models.TranscriptProcessSubject,
			data:    transcriptJobPayload(t, "meeting-1"),
			attempt: 1,
			ackErr:  assert.AnError,
		}
		handler.HandleJob(ctx, msg)

		assert.True(t, msg.acked)
	})
}
