// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// User is the key-value store representation of a human user. Records are
// kept in sync with the identity provider and are read by the transcript
// pipeline for speaker attribution.
type User struct {
	UID       string     `json:"uid"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
