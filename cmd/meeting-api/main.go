// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

// Package main is the meeting agent service API that provides a RESTful API
// for managing meetings and agents, receives call lifecycle webhooks from the
// video platform, and processes meeting transcripts from a NATS work queue.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/meetwise-ai/meeting-agent-service/internal/handlers"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/messaging"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/openai"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/stream"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/webhook"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
	"github.com/meetwise-ai/meeting-agent-service/internal/service"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Set up the JWT validator that authenticates bearer tokens on the API.
	jwtAuth, err := setupJWTAuth()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	// Setup NATS connection
	natsConn, err := setupNATS(env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	js, repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// Initialize platform clients
	streamClient := stream.NewClient(stream.Config{
		APIKey:    env.StreamAPIKey,
		APISecret: env.StreamAPISecret,
	})
	realtime := stream.NewRealtimeProvider(streamClient, env.OpenAIAPIKey)
	summarizer := openai.NewSummarizer(openai.Config{
		APIKey: env.OpenAIAPIKey,
	})
	fetcher := stream.NewTranscriptFetcher(0)

	// Initialize services
	serviceConfig := service.ServiceConfig{
		FreeTierMaxMeetings: env.FreeTierMaxMeetings,
		FreeTierMaxAgents:   env.FreeTierMaxAgents,
	}
	messageBuilder := messaging.NewMessageBuilder(natsConn, js)
	meetingService := service.NewMeetingService(
		repos.Meeting,
		repos.Agent,
		messageBuilder,
		streamClient,
		serviceConfig,
	)
	agentService := service.NewAgentService(repos.Agent, serviceConfig)
	webhookService := service.NewWebhookEventService(
		meetingService,
		repos.Agent,
		messageBuilder,
		realtime,
		env.OpenAIAPIKey != "",
	)
	transcriptProcessor := service.NewTranscriptProcessor(
		meetingService,
		repos.Agent,
		repos.User,
		fetcher,
		summarizer,
	)

	svc := NewMeetingAgentAPI(
		jwtAuth,
		meetingService,
		agentService,
		webhookService,
		webhook.NewValidator(env.WebhookSecret),
		natsConn,
	)

	httpServer := setupHTTPServer(flags, svc, &gracefulCloseWG)

	// Start the transcript work-queue consumer.
	jobHandler := handlers.NewTranscriptJobHandler(transcriptProcessor)
	consumeCtx, err := startTranscriptConsumer(ctx, js, jobHandler)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error starting transcript consumer")
		return
	}

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, consumeCtx, &gracefulCloseWG, cancel)
}
