// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"

	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

// flags are the command line flags for the meeting agent service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the meeting agent service.
type environment struct {
	Port                string
	NatsURL             string
	WebhookSecret       string
	StreamAPIKey        string
	StreamAPISecret     string
	OpenAIAPIKey        string
	FreeTierMaxMeetings int
	FreeTierMaxAgents   int
}

// parseFlags parses command line flags for the meeting agent service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the meeting agent service
func parseEnv() environment {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	if webhookSecret == "" {
		slog.Error("WEBHOOK_SECRET environment variable is required but not set")
		os.Exit(1)
	}

	streamAPIKey := os.Getenv("STREAM_API_KEY")
	streamAPISecret := os.Getenv("STREAM_API_SECRET")
	if streamAPIKey == "" || streamAPISecret == "" {
		slog.Error("STREAM_API_KEY and STREAM_API_SECRET environment variables are required but not set")
		os.Exit(1)
	}

	// The summarizer and the voice agent both need this key. The service
	// still starts without it: webhook session starts then fail loudly.
	openAIAPIKey := os.Getenv("OPENAI_API_KEY")
	if openAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, agent sessions and summarization are disabled")
	}

	return environment{
		Port:                port,
		NatsURL:             natsURL,
		WebhookSecret:       webhookSecret,
		StreamAPIKey:        streamAPIKey,
		StreamAPISecret:     streamAPISecret,
		OpenAIAPIKey:        openAIAPIKey,
		FreeTierMaxMeetings: parseEnvInt("FREE_TIER_MAX_MEETINGS"),
		FreeTierMaxAgents:   parseEnvInt("FREE_TIER_MAX_AGENTS"),
	}
}

// parseEnvInt reads a non-negative integer environment variable.
// Missing or invalid values disable the corresponding limit.
func parseEnvInt(name string) int {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		slog.With("name", name, "value", raw).Warn("ignoring invalid integer environment variable")
		return 0
	}
	return value
}
