// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

// MockAgentRepository implements AgentRepository for testing
type MockAgentRepository struct {
	mock.Mock
}

func (m *MockAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	args := m.Called(ctx, agent)
	return args.Error(0)
}

func (m *MockAgentRepository) Get(ctx context.Context, agentUID string) (*models.Agent, error) {
	args := m.Called(ctx, agentUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAgentRepository) GetWithRevision(ctx context.Context, agentUID string) (*models.Agent, uint64, error) {
	args := m.Called(ctx, agentUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.Agent), args.Get(1).(uint64), args.Error(2)
}

func (m *MockAgentRepository) Update(ctx context.Context, agent *models.Agent, revision uint64) error {
	args := m.Called(ctx, agent, revision)
	return args.Error(0)
}

func (m *MockAgentRepository) Delete(ctx context.Context, agentUID string, revision uint64) error {
	args := m.Called(ctx, agentUID, revision)
	return args.Error(0)
}

func (m *MockAgentRepository) ListAll(ctx context.Context) ([]*models.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Agent), args.Error(1)
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Get(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
