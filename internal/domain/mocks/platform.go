// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
)

// MockVideoPlatform implements VideoPlatform for testing
type MockVideoPlatform struct {
	mock.Mock
}

func (m *MockVideoPlatform) CreateCall(ctx context.Context, settings domain.CallSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockVideoPlatform) EndCall(ctx context.Context, meetingUID string) error {
	args := m.Called(ctx, meetingUID)
	return args.Error(0)
}

func (m *MockVideoPlatform) UpsertUser(ctx context.Context, userUID, name, role string) error {
	args := m.Called(ctx, userUID, name, role)
	return args.Error(0)
}

func (m *MockVideoPlatform) IssueToken(userUID string, expiresIn time.Duration) (string, error) {
	args := m.Called(userUID, expiresIn)
	return args.String(0), args.Error(1)
}

// MockRealtimeProvider implements RealtimeProvider for testing
type MockRealtimeProvider struct {
	mock.Mock
}

func (m *MockRealtimeProvider) Connect(ctx context.Context, meetingUID, agentUserUID string) (domain.RealtimeSession, error) {
	args := m.Called(ctx, meetingUID, agentUserUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RealtimeSession), args.Error(1)
}

func (m *MockRealtimeProvider) Disconnect(ctx context.Context, meetingUID string) {
	m.Called(ctx, meetingUID)
}

// MockRealtimeSession implements RealtimeSession for testing
type MockRealtimeSession struct {
	mock.Mock
}

func (m *MockRealtimeSession) UpdateInstructions(ctx context.Context, instructions string) error {
	args := m.Called(ctx, instructions)
	return args.Error(0)
}

// MockTranscriptFetcher implements TranscriptFetcher for testing
type MockTranscriptFetcher struct {
	mock.Mock
}

func (m *MockTranscriptFetcher) FetchTranscript(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSummarizer implements Summarizer for testing
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Run(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}
