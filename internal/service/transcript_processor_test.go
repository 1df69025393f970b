// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/mocks"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

type processorMocks struct {
	meetingRepo *mocks.MockMeetingRepository
	agentRepo   *mocks.MockAgentRepository
	userRepo    *mocks.MockUserRepository
	mb          *mocks.MockMessageBuilder
	fetcher     *mocks.MockTranscriptFetcher
	summarizer  *mocks.MockSummarizer
}

func newTestTranscriptProcessor() (*TranscriptProcessor, *processorMocks) {
	m := &processorMocks{
		meetingRepo: &mocks.MockMeetingRepository{},
		agentRepo:   &mocks.MockAgentRepository{},
		userRepo:    &mocks.MockUserRepository{},
		mb:          &mocks.MockMessageBuilder{},
		fetcher:     &mocks.MockTranscriptFetcher{},
		summarizer:  &mocks.MockSummarizer{},
	}
	meetingService := NewMeetingService(m.meetingRepo, m.agentRepo, m.mb, &mocks.MockVideoPlatform{}, ServiceConfig{})
	processor := NewTranscriptProcessor(meetingService, m.agentRepo, m.userRepo, m.fetcher, m.summarizer)
	return processor, m
}

func TestTranscriptProcessor_ProcessTranscript(t *testing.T) {
	ctx := context.Background()
	job := models.TranscriptJobMessage{MeetingUID: "meeting-1", TranscriptURL: "https://cdn/transcript.jsonl"}
	rawTranscript := []byte(`{"speaker_id":"user-1","text":"let us begin","start_ts":1000}
{"speaker_id":"agent-1","text":"noted","start_ts":2000}`)

	t.Run("full pipeline produces a summary", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		meeting := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusProcessing}

		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(meeting, nil).Once()
		m.meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
		m.fetcher.On("FetchTranscript", mock.Anything, "https://cdn/transcript.jsonl").Return(rawTranscript, nil)
		m.userRepo.On("Get", mock.Anything, "user-1").Return(&models.User{UID: "user-1", Name: "Jane"}, nil)
		m.userRepo.On("Get", mock.Anything, "agent-1").Return(nil, domain.NewNotFoundError("not a user"))
		m.agentRepo.On("Get", mock.Anything, "agent-1").Return(&models.Agent{UID: "agent-1", Name: "Lucy"}, nil)
		m.summarizer.On("Run", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(prompt string) bool {
			return assert.Contains(t, prompt, "Summarize the following transcript: ") &&
				assert.Contains(t, prompt, "Jane: let us begin") &&
				assert.Contains(t, prompt, "Lucy: noted")
		})).Return("### Overview\nA productive session.", nil)
		m.meetingRepo.On("Update", mock.Anything, mock.MatchedBy(func(mt *models.Meeting) bool {
			return mt.Status == models.MeetingStatusCompleted && mt.Summary == "### Overview\nA productive session."
		}), uint64(1)).Return(nil)
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1", Status: models.MeetingStatusCompleted, Summary: "### Overview\nA productive session."}, nil)
		m.mb.On("SendMeetingUpdated", mock.Anything, mock.AnythingOfType("models.MeetingUpdatedMessage")).Return(nil)

		err := processor.ProcessTranscript(ctx, job)

		require.NoError(t, err)
		m.summarizer.AssertExpectations(t)
	})

	t.Run("already summarized meeting writes nothing", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		meeting := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusCompleted, Summary: "done"}
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(meeting, nil)

		err := processor.ProcessTranscript(ctx, job)

		require.NoError(t, err)
		m.meetingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		m.fetcher.AssertNotCalled(t, "FetchTranscript", mock.Anything, mock.Anything)
	})

	t.Run("missing meeting is returned for redelivery", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(nil, domain.NewNotFoundError("meeting not found"))

		err := processor.ProcessTranscript(ctx, job)

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("fetch failure completes with a failure note", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		meeting := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusProcessing}

		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(meeting, nil).Once()
		m.meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
		m.fetcher.On("FetchTranscript", mock.Anything, "https://cdn/transcript.jsonl").
			Return(nil, domain.NewUnavailableError("cdn unavailable"))
		m.meetingRepo.On("Update", mock.Anything, mock.MatchedBy(func(mt *models.Meeting) bool {
			return mt.Status == models.MeetingStatusCompleted &&
				assert.Contains(t, mt.Summary, "Failed to generate summary: ")
		}), uint64(1)).Return(nil)
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1", Status: models.MeetingStatusCompleted, Summary: "Failed to generate summary: x"}, nil)
		m.mb.On("SendMeetingUpdated", mock.Anything, mock.AnythingOfType("models.MeetingUpdatedMessage")).Return(nil)

		err := processor.ProcessTranscript(ctx, job)

		require.NoError(t, err, "backstop converts pipeline failures into completion")
	})

	t.Run("empty transcript completes with a failure note", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		meeting := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusProcessing}

		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(meeting, nil).Once()
		m.meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
		m.fetcher.On("FetchTranscript", mock.Anything, "https://cdn/transcript.jsonl").Return([]byte("\n"), nil)
		m.meetingRepo.On("Update", mock.Anything, mock.MatchedBy(func(mt *models.Meeting) bool {
			return mt.Status == models.MeetingStatusCompleted
		}), uint64(1)).Return(nil)
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1", Status: models.MeetingStatusCompleted, Summary: "Failed to generate summary: x"}, nil)
		m.mb.On("SendMeetingUpdated", mock.Anything, mock.AnythingOfType("models.MeetingUpdatedMessage")).Return(nil)

		err := processor.ProcessTranscript(ctx, job)

		require.NoError(t, err)
		m.summarizer.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no transcript URL anywhere completes with a failure note", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		meeting := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusProcessing}

		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(meeting, nil).Once()
		m.meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
		m.meetingRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Meeting"), uint64(1)).Return(nil)
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1", Status: models.MeetingStatusCompleted, Summary: "Failed to generate summary: x"}, nil)
		m.mb.On("SendMeetingUpdated", mock.Anything, mock.AnythingOfType("models.MeetingUpdatedMessage")).Return(nil)

		err := processor.ProcessTranscript(ctx, models.TranscriptJobMessage{MeetingUID: "meeting-1"})

		require.NoError(t, err)
		m.fetcher.AssertNotCalled(t, "FetchTranscript", mock.Anything, mock.Anything)
	})

	t.Run("stored URL is used when the job carries none", func(t *testing.T) {
		processor, m := newTestTranscriptProcessor()
		meeting := &models.Meeting{
			UID:           "meeting-1",
			Status:        models.MeetingStatusProcessing,
			TranscriptURL: "https://cdn/stored.jsonl",
		}

		m.meetingRepo.On("Get", mock.Anything, "meeting-1").Return(meeting, nil).Once()
		m.meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
		m.fetcher.On("FetchTranscript", mock.Anything, "https://cdn/stored.jsonl").Return(rawTranscript, nil)
		m.userRepo.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, domain.NewNotFoundError("no user"))
		m.agentRepo.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, domain.NewNotFoundError("no agent"))
		m.summarizer.On("Run", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
			Return("### Overview\nDone.", nil)
		m.meetingRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Meeting"), uint64(1)).Return(nil)
		m.meetingRepo.On("Get", mock.Anything, "meeting-1").
			Return(&models.Meeting{UID: "meeting-1", Status: models.MeetingStatusCompleted, Summary: "### Overview\nDone."}, nil)
		m.mb.On("SendMeetingUpdated", mock.Anything, mock.AnythingOfType("models.MeetingUpdatedMessage")).Return(nil)

		err := processor.ProcessTranscript(ctx, models.TranscriptJobMessage{MeetingUID: "meeting-1"})

		require.NoError(t, err)
		m.fetcher.AssertExpectations(t)
	})
}

func TestTranscriptProcessor_SpeakerAttribution(t *testing.T) {
	ctx := context.Background()
	processor, m := newTestTranscriptProcessor()

	items := []models.TranscriptItem{
		{SpeakerID: "user-1", Text: "hello", StartTS: 1000},
		{SpeakerID: "agent-1", Text: "hi there", StartTS: 2000},
		{SpeakerID: "mystery-bot", Text: "beep", StartTS: 3000},
		{SpeakerID: "user-1", Text: "bye", StartTS: 4000},
	}

	m.userRepo.On("Get", mock.Anything, "user-1").Return(&models.User{UID: "user-1", Name: "Jane"}, nil)
	m.userRepo.On("Get", mock.Anything, "agent-1").Return(nil, domain.NewNotFoundError("no user"))
	m.userRepo.On("Get", mock.Anything, "mystery-bot").Return(nil, domain.NewNotFoundError("no user"))
	m.agentRepo.On("Get", mock.Anything, "agent-1").Return(&models.Agent{UID: "agent-1", Name: "Lucy"}, nil)
	m.agentRepo.On("Get", mock.Anything, "mystery-bot").Return(nil, domain.NewNotFoundError("no agent"))

	attributed, err := processor.attributeSpeakers(ctx, items)

	require.NoError(t, err)
	require.Len(t, attributed, 4)
	assert.Equal(t, "Jane", attributed[0].SpeakerName)
	assert.Equal(t, models.SpeakerTypeUser, attributed[0].SpeakerType)
	assert.Equal(t, "Lucy", attributed[1].SpeakerName)
	assert.Equal(t, models.SpeakerTypeAgent, attributed[1].SpeakerType)
	assert.Equal(t, "Unknown", attributed[2].SpeakerName)
	assert.Equal(t, models.SpeakerTypeAgent, attributed[2].SpeakerType, "bot token classifies as agent")
	assert.Equal(t, "Jane", attributed[3].SpeakerName)

	// Each distinct speaker is looked up exactly once.
	m.userRepo.AssertNumberOfCalls(t, "Get", 3)
}

func TestFormatTranscript(t *testing.T) {
	items := []models.AttributedTranscriptItem{
		{TranscriptItem: models.TranscriptItem{Text: "hello"}, SpeakerName: "Jane"},
		{TranscriptItem: models.TranscriptItem{Text: "hi"}, SpeakerName: "Lucy"},
	}

	assert.Equal(t, "Jane: hello\nLucy: hi\n", formatTranscript(items))
}
