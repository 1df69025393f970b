// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"bufio"
	"encoding/json"
	"strings"
)

// Speaker classification used in attributed transcripts.
const (
	SpeakerTypeUser  = "user"
	SpeakerTypeAgent = "agent"
)

// TranscriptItem is one line-delimited JSON record of a raw transcript.
// A record is only usable when it carries a speaker, text, and timestamp.
type TranscriptItem struct {
	SpeakerID string `json:"speaker_id"`
	Type      string `json:"type,omitempty"`
	Text      string `json:"text"`
	StartTS   int64  `json:"start_ts"`
	StopTS    int64  `json:"stop_ts,omitempty"`
}

// IsUsable reports whether the record has the three required fields.
func (t TranscriptItem) IsUsable() bool {
	return t.SpeakerID != "" && t.Text != "" && t.StartTS != 0
}

// AttributedTranscriptItem is a transcript record resolved to a speaker name.
type AttributedTranscriptItem struct {
	TranscriptItem
	SpeakerName string `json:"speaker_name"`
	SpeakerType string `json:"speaker_type"`
}

// ParseTranscriptJSONL parses a line-delimited JSON transcript. Records that
// fail to decode or are missing required fields are returned separately so
// the caller can log them; the parse itself never fails on a bad line.
func ParseTranscriptJSONL(raw string) (items []TranscriptItem, dropped int) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	// Transcript lines can exceed the default scanner token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item TranscriptItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			dropped++
			continue
		}
		if !item.IsUsable() {
			dropped++
			continue
		}
		items = append(items, item)
	}

	return items, dropped
}

// GuessSpeakerType classifies an unresolvable speaker identifier. The vendor
// does not always supply speaker metadata, so identifiers containing an
// agent-like token are treated as agents and everything else as users.
func GuessSpeakerType(speakerID string) string {
	lowered := strings.ToLower(speakerID)
	for _, token := range []string{"agent", "bot", "ai"} {
		if strings.Contains(lowered, token) {
			return SpeakerTypeAgent
		}
	}
	return SpeakerTypeUser
}
