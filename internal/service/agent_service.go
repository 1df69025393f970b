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

// CreateAgentRequest is the payload for creating an agent.
type CreateAgentRequest struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// UpdateAgentRequest is the payload for updating an agent. Nil fields are
// left unchanged.
type UpdateAgentRequest struct {
	Name         *string `json:"name,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// AgentFilter pages agent listings.
type AgentFilter struct {
	Page     int
	PageSize int
}

// AgentService owns agent configuration: the named personas with stored
// instructions that join meetings as voice agents.
type AgentService struct {
	AgentRepository domain.AgentRepository
	Config          ServiceConfig
}

// NewAgentService creates a new AgentService.
func NewAgentService(agentRepository domain.AgentRepository, config ServiceConfig) *AgentService {
	return &AgentService{
		AgentRepository: agentRepository,
		Config:          config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AgentService) ServiceReady() bool {
	return s.AgentRepository != nil
}

// CreateAgent creates a new agent owned by the user.
func (s *AgentService) CreateAgent(ctx context.Context, userUID string, req CreateAgentRequest) (*models.Agent, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("agent service is not ready")
	}

	if req.Name == "" {
		return nil, domain.NewValidationError("agent name is required")
	}
	if req.Instructions == "" {
		return nil, domain.NewValidationError("agent instructions are required")
	}

	if err := s.checkAgentQuota(ctx, userUID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	agent := &models.Agent{
		UID:          uuid.New().String(),
		Name:         req.Name,
		UserUID:      userUID,
		Instructions: req.Instructions,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	if err := s.AgentRepository.Create(ctx, agent); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "created agent", "agent_uid", agent.UID)
	return agent, nil
}

// GetAgent fetches one agent owned by the user.
func (s *AgentService) GetAgent(ctx context.Context, userUID, agentUID string) (*models.Agent, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("agent service is not ready")
	}

	agent, err := s.AgentRepository.Get(ctx, agentUID)
	if err != nil {
		return nil, err
	}
	if agent.UserUID != userUID {
		return nil, domain.NewNotFoundError("agent not found")
	}
	return agent, nil
}

// ListAgents returns the user's agents, newest first.
func (s *AgentService) ListAgents(ctx context.Context, userUID string, filter AgentFilter) ([]*models.Agent, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("agent service is not ready")
	}

	all, err := s.AgentRepository.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var agents []*models.Agent
	for _, a := range all {
		if a.UserUID == userUID {
			agents = append(agents, a)
		}
	}

	sort.Slice(agents, func(i, j int) bool {
		ti, tj := agents[i].CreatedAt, agents[j].CreatedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})

	return paginate(agents, filter.Page, filter.PageSize), nil
}

// UpdateAgent updates an agent's name or instructions.
func (s *AgentService) UpdateAgent(ctx context.Context, userUID, agentUID string, req UpdateAgentRequest) (*models.Agent, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("agent service is not ready")
	}

	agent, revision, err := s.AgentRepository.GetWithRevision(ctx, agentUID)
	if err != nil {
		return nil, err
	}
	if agent.UserUID != userUID {
		return nil, domain.NewNotFoundError("agent not found")
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, domain.NewValidationError("agent name cannot be empty")
		}
		agent.Name = *req.Name
	}
	if req.Instructions != nil {
		if *req.Instructions == "" {
			return nil, domain.NewValidationError("agent instructions cannot be empty")
		}
		agent.Instructions = *req.Instructions
	}

	now := time.Now().UTC()
	agent.UpdatedAt = &now

	if err := s.AgentRepository.Update(ctx, agent, revision); err != nil {
		return nil, err
	}

	return agent, nil
}

// DeleteAgent removes an agent owned by the user.
func (s *AgentService) DeleteAgent(ctx context.Context, userUID, agentUID string) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("agent service is not ready")
	}

	agent, revision, err := s.AgentRepository.GetWithRevision(ctx, agentUID)
	if err != nil {
		return err
	}
	if agent.UserUID != userUID {
		return domain.NewNotFoundError("agent not found")
	}

	if err := s.AgentRepository.Delete(ctx, agentUID, revision); err != nil {
		return err
	}

	slog.InfoContext(ctx, "deleted agent", "agent_uid", agentUID)
	return nil
}

func (s *AgentService) checkAgentQuota(ctx context.Context, userUID string) error {
	if s.Config.FreeTierMaxAgents <= 0 {
		return nil
	}

	all, err := s.AgentRepository.ListAll(ctx)
	if err != nil {
		return err
	}
	count := 0
	for _, a := range all {
		if a.UserUID == userUID {
			count++
		}
	}
	if count >= s.Config.FreeTierMaxAgents {
		return domain.NewForbiddenError("free tier agent limit reached")
	}
	return nil
}
