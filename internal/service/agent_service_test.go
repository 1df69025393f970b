// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/mocks"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/pkg/utils"
)

func TestAgentService_CreateAgent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		req           CreateAgentRequest
		setupMocks    func(*mocks.MockAgentRepository)
		expectedError domain.ErrorType
	}{
		{
			name: "successful creation",
			req:  CreateAgentRequest{Name: "Lucy", Instructions: "You are a helpful note taker."},
			setupMocks: func(agentRepo *mocks.MockAgentRepository) {
				agentRepo.On("Create", ctx, mock.AnythingOfType("*models.Agent")).Return(nil)
			},
		},
		{
			name:          "missing name",
			req:           CreateAgentRequest{Instructions: "You are a helpful note taker."},
			setupMocks:    func(*mocks.MockAgentRepository) {},
			expectedError: domain.ErrorTypeValidation,
		},
		{
			name:          "missing instructions",
			req:           CreateAgentRequest{Name: "Lucy"},
			setupMocks:    func(*mocks.MockAgentRepository) {},
			expectedError: domain.ErrorTypeValidation,
		},
		{
			name: "repository failure propagates",
			req:  CreateAgentRequest{Name: "Lucy", Instructions: "You are a helpful note taker."},
			setupMocks: func(agentRepo *mocks.MockAgentRepository) {
				agentRepo.On("Create", ctx, mock.AnythingOfType("*models.Agent")).
					Return(domain.NewInternalError("write failed"))
			},
			expectedError: domain.ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agentRepo := &mocks.MockAgentRepository{}
			tt.setupMocks(agentRepo)
			svc := NewAgentService(agentRepo, ServiceConfig{})

			agent, err := svc.CreateAgent(ctx, "user-1", tt.req)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedError, domain.GetErrorType(err))
				assert.Nil(t, agent)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, agent)
			assert.NotEmpty(t, agent.UID)
			assert.Equal(t, "user-1", agent.UserUID)
			agentRepo.AssertExpectations(t)
		})
	}
}

func TestAgentService_CreateAgentQuota(t *testing.T) {
	ctx := context.Background()
	agentRepo := &mocks.MockAgentRepository{}
	svc := NewAgentService(agentRepo, ServiceConfig{FreeTierMaxAgents: 1})

	agentRepo.On("ListAll", ctx).Return([]*models.Agent{
		{UID: "agent-1", UserUID: "user-1"},
	}, nil)

	_, err := svc.CreateAgent(ctx, "user-1", CreateAgentRequest{Name: "Second", Instructions: "hi"})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeForbidden, domain.GetErrorType(err))
}

func TestAgentService_GetAgent(t *testing.T) {
	ctx := context.Background()
	agent := &models.Agent{UID: "agent-1", UserUID: "user-1"}

	t.Run("owner gets agent", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agentRepo.On("Get", ctx, "agent-1").Return(agent, nil)
		svc := NewAgentService(agentRepo, ServiceConfig{})

		got, err := svc.GetAgent(ctx, "user-1", "agent-1")
		require.NoError(t, err)
		assert.Equal(t, agent, got)
	})

	t.Run("other user sees not found", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agentRepo.On("Get", ctx, "agent-1").Return(agent, nil)
		svc := NewAgentService(agentRepo, ServiceConfig{})

		_, err := svc.GetAgent(ctx, "user-2", "agent-1")
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}

func TestAgentService_ListAgents(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	agentRepo := &mocks.MockAgentRepository{}
	agentRepo.On("ListAll", ctx).Return([]*models.Agent{
		{UID: "agent-1", UserUID: "user-1", CreatedAt: &t1},
		{UID: "agent-2", UserUID: "user-1", CreatedAt: &t2},
		{UID: "agent-3", UserUID: "user-2", CreatedAt: &t2},
	}, nil)
	svc := NewAgentService(agentRepo, ServiceConfig{})

	agents, err := svc.ListAgents(ctx, "user-1", AgentFilter{})

	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "agent-2", agents[0].UID)
	assert.Equal(t, "agent-1", agents[1].UID)
}

func TestAgentService_UpdateAgent(t *testing.T) {
	ctx := context.Background()

	t.Run("updates instructions", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agent := &models.Agent{UID: "agent-1", UserUID: "user-1", Name: "Lucy", Instructions: "old"}
		agentRepo.On("GetWithRevision", ctx, "agent-1").Return(agent, uint64(5), nil)
		agentRepo.On("Update", ctx, mock.AnythingOfType("*models.Agent"), uint64(5)).Return(nil)
		svc := NewAgentService(agentRepo, ServiceConfig{})

		updated, err := svc.UpdateAgent(ctx, "user-1", "agent-1", UpdateAgentRequest{
			Instructions: utils.StringPtr("You now keep minutes."),
		})

		require.NoError(t, err)
		assert.Equal(t, "You now keep minutes.", updated.Instructions)
		assert.Equal(t, "Lucy", updated.Name)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agent := &models.Agent{UID: "agent-1", UserUID: "user-1"}
		agentRepo.On("GetWithRevision", ctx, "agent-1").Return(agent, uint64(5), nil)
		svc := NewAgentService(agentRepo, ServiceConfig{})

		_, err := svc.UpdateAgent(ctx, "user-1", "agent-1", UpdateAgentRequest{Name: utils.StringPtr("")})

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})

	t.Run("other user's agent is not found", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agent := &models.Agent{UID: "agent-1", UserUID: "user-1"}
		agentRepo.On("GetWithRevision", ctx, "agent-1").Return(agent, uint64(5), nil)
		svc := NewAgentService(agentRepo, ServiceConfig{})

		_, err := svc.UpdateAgent(ctx, "user-2", "agent-1", UpdateAgentRequest{Name: utils.StringPtr("Eve")})

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}

func TestAgentService_DeleteAgent(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes agent", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agent := &models.Agent{UID: "agent-1", UserUID: "user-1"}
		agentRepo.On("GetWithRevision", ctx, "agent-1").Return(agent, uint64(2), nil)
		agentRepo.On("Delete", ctx, "agent-1", uint64(2)).Return(nil)
		svc := NewAgentService(agentRepo, ServiceConfig{})

		require.NoError(t, svc.DeleteAgent(ctx, "user-1", "agent-1"))
		agentRepo.AssertExpectations(t)
	})

	t.Run("missing agent", func(t *testing.T) {
		agentRepo := &mocks.MockAgentRepository{}
		agentRepo.On("GetWithRevision", ctx, "ghost").Return(nil, uint64(0), domain.NewNotFoundError("agent not found"))
		svc := NewAgentService(agentRepo, ServiceConfig{})

		err := svc.DeleteAgent(ctx, "user-1", "ghost")
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}
