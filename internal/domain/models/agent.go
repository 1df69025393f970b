// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// Agent is a reusable named instruction set owned by a user. Its instructions
// are injected into the live voice session when a meeting starts.
type Agent struct {
	UID          string     `json:"uid"`
	Name         string     `json:"name"`
	UserUID      string     `json:"user_uid"`
	Instructions string     `json:"instructions"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
