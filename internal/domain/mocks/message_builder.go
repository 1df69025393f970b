// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

// MockMessageBuilder implements MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendTranscriptJob(ctx context.Context, job models.TranscriptJobMessage) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendMeetingUpdated(ctx context.Context, msg models.MeetingUpdatedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
