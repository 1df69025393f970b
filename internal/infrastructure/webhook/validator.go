// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Validator verifies the authenticity of inbound webhook payloads with a
// shared-secret HMAC. Verification runs against the exact raw request bytes:
// re-serializing parsed JSON before verifying produces spurious mismatches.
type Validator struct {
	secret string
}

// NewValidator creates a new webhook signature validator.
func NewValidator(secret string) *Validator {
	return &Validator{
		secret: secret,
	}
}

// ValidateSignature checks the HMAC-SHA256 signature of the raw body.
func (v *Validator) ValidateSignature(rawBody []byte, signature string) error {
	if v.secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}

	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}

	h := hmac.New(sha256.New, []byte(v.secret))
	h.Write(rawBody)
	expected := hex.EncodeToString(h.Sum(nil))

	// Constant-time comparison.
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}

	return nil
}

// Sign computes the signature for a raw body. Used by tests and by local
// tooling that replays webhook deliveries.
func (v *Validator) Sign(rawBody []byte) string {
	h := hmac.New(sha256.New, []byte(v.secret))
	h.Write(rawBody)
	return hex.EncodeToString(h.Sum(nil))
}
