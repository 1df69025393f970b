// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

// MeetingRepository defines the interface for meeting storage operations.
// This interface can be implemented by different storage backends (NATS KV,
// PostgreSQL, etc.)
type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	Exists(ctx context.Context, meetingUID string) (bool, error)
	Get(ctx context.Context, meetingUID string) (*models.Meeting, error)
	GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	Update(ctx context.Context, meeting *models.Meeting, revision uint64) error
	Delete(ctx context.Context, meetingUID string, revision uint64) error
	ListAll(ctx context.Context) ([]*models.Meeting, error)
}

// AgentRepository defines the interface for agent storage operations.
type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	Get(ctx context.Context, agentUID string) (*models.Agent, error)
	GetWithRevision(ctx context.Context, agentUID string) (*models.Agent, uint64, error)
	Update(ctx context.Context, agent *models.Agent, revision uint64) error
	Delete(ctx context.Context, agentUID string, revision uint64) error
	ListAll(ctx context.Context) ([]*models.Agent, error)
}

// UserRepository defines the read interface for user records, used for
// speaker attribution in the transcript pipeline.
type UserRepository interface {
	Get(ctx context.Context, userUID string) (*models.User, error)
}
