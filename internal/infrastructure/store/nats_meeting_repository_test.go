// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
)

func TestNatsMeetingRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRepository(kv)

	meeting := &models.Meeting{
		UID:      "meeting-1",
		Title:    "Sprint review",
		AgentUID: "agent-1",
		UserUID:  "user-1",
		Status:   models.MeetingStatusUpcoming,
	}

	require.NoError(t, repo.Create(ctx, meeting))

	got, err := repo.Get(ctx, "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, "Sprint review", got.Title)
	assert.Equal(t, models.MeetingStatusUpcoming, got.Status)
}

func TestNatsMeetingRepository_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsMeetingRepository(newMockNatsKeyValue())

	_, err := repo.Get(ctx, "ghost")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsMeetingRepository_GetMalformedData(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	kv.data["meeting-1"] = []byte("not json")
	kv.revisions["meeting-1"] = 1
	repo := NewNatsMeetingRepository(kv)

	_, err := repo.Get(ctx, "meeting-1")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
}

func TestNatsMeetingRepository_UpdateRevisions(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRepository(kv)

	meeting := &models.Meeting{UID: "meeting-1", Title: "Before", Status: models.MeetingStatusUpcoming}
	require.NoError(t, repo.Create(ctx, meeting))

	got, revision, err := repo.GetWithRevision(ctx, "meeting-1")
	require.NoError(t, err)

	got.Title = "After"
	require.NoError(t, repo.Update(ctx, got, revision))

	t.Run("stale revision is a conflict", func(t *testing.T) {
		got.Title = "Stale write"
		err := repo.Update(ctx, got, revision)
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	})

	t.Run("fresh revision succeeds", func(t *testing.T) {
		fresh, freshRevision, err := repo.GetWithRevision(ctx, "meeting-1")
		require.NoError(t, err)
		assert.Equal(t, "After", fresh.Title)

		fresh.Title = "Final"
		require.NoError(t, repo.Update(ctx, fresh, freshRevision))
	})

	t.Run("update of a missing key is not found", func(t *testing.T) {
		err := repo.Update(ctx, &models.Meeting{UID: "ghost"}, 1)
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}

func TestNatsMeetingRepository_Delete(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRepository(kv)

	require.NoError(t, repo.Create(ctx, &models.Meeting{UID: "meeting-1"}))
	require.NoError(t, repo.Delete(ctx, "meeting-1", 1))

	exists, err := repo.Exists(ctx, "meeting-1")
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Delete(ctx, "meeting-1", 1)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsMeetingRepository_ListAll(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsMeetingRepository(kv)

	require.NoError(t, repo.Create(ctx, &models.Meeting{UID: "meeting-1", UserUID: "user-1"}))
	require.NoError(t, repo.Create(ctx, &models.Meeting{UID: "meeting-2", UserUID: "user-2"}))

	meetings, err := repo.ListAll(ctx)

	require.NoError(t, err)
	assert.Len(t, meetings, 2)
}

func TestNatsMeetingRepository_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("put error is internal", func(t *testing.T) {
		kv := newMockNatsKeyValue()
		kv.putError = errors.New("connection lost")
		repo := NewNatsMeetingRepository(kv)

		err := repo.Create(ctx, &models.Meeting{UID: "meeting-1"})
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})

	t.Run("nil store is unavailable", func(t *testing.T) {
		repo := NewNatsMeetingRepository(nil)

		_, err := repo.Get(ctx, "meeting-1")
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}

func TestNatsAgentRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsAgentRepository(newMockNatsKeyValue())

	agent := &models.Agent{UID: "agent-1", Name: "Lucy", UserUID: "user-1", Instructions: "Take notes."}
	require.NoError(t, repo.Create(ctx, agent))

	got, err := repo.Get(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "Lucy", got.Name)
	assert.Equal(t, "Take notes.", got.Instructions)

	agents, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestNatsUserRepository_Get(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	kv.data["user-1"] = []byte(`{"uid":"user-1","name":"Jane"}`)
	kv.revisions["user-1"] = 1
	repo := NewNatsUserRepository(kv)

	user, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.Name)

	_, err = repo.Get(ctx, "ghost")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}
