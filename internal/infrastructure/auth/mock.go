// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"
)

// MockJWTAuth implements IJWTAuth for testing
type MockJWTAuth struct {
	mock.Mock
}

func (m *MockJWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (*Principal, error) {
	args := m.Called(ctx, token, logger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Principal), args.Error(1)
}
