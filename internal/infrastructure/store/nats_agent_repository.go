// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

// NatsAgentRepository is the NATS KV store repository for agents.
type NatsAgentRepository struct {
	*NatsBaseRepository[models.Agent]
}

// NewNatsAgentRepository creates a new NATS KV store repository for agents.
func NewNatsAgentRepository(kvStore INatsKeyValue) *NatsAgentRepository {
	return &NatsAgentRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Agent](kvStore, "agent"),
	}
}

func (r *NatsAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	return r.NatsBaseRepository.Create(ctx, agent.UID, agent)
}

func (r *NatsAgentRepository) Update(ctx context.Context, agent *models.Agent, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, agent.UID, agent, revision)
}

func (r *NatsAgentRepository) ListAll(ctx context.Context) ([]*models.Agent, error) {
	return r.ListEntities(ctx)
}

// NatsUserRepository is the NATS KV store repository for user records.
type NatsUserRepository struct {
	*NatsBaseRepository[models.User]
}

// NewNatsUserRepository creates a new NATS KV store repository for users.
func NewNatsUserRepository(kvStore INatsKeyValue) *NatsUserRepository {
	return &NatsUserRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.User](kvStore, "user"),
	}
}
