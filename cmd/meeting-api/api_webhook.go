// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/middleware"
	"github.com/meetwise-ai/meeting-agent-service/pkg/constants"
)

// handleWebhook receives call lifecycle events from the video platform.
//
// The raw body captured by the middleware is what gets verified: the vendor
// signs the exact bytes it sends, so verification must not run over
// re-serialized JSON.
func (a *MeetingAgentAPI) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	signature := r.Header.Get(constants.SignatureHeader)
	apiKey := r.Header.Get(constants.APIKeyHeader)
	if signature == "" || apiKey == "" {
		writeError(ctx, w, domain.NewValidationError("missing webhook signature or API key header"))
		return
	}

	rawBody, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		writeError(ctx, w, domain.NewInternalError("webhook body was not captured"))
		return
	}

	if err := a.webhookValidator.ValidateSignature(rawBody, signature); err != nil {
		writeError(ctx, w, domain.NewUnauthorizedError("webhook signature verification failed", err))
		return
	}

	if err := a.webhookService.HandleEvent(ctx, rawBody); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
