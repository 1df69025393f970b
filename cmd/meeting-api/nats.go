// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/meetwise-ai/meeting-agent-service/internal/domain"
	"github.com/meetwise-ai/meeting-agent-service/internal/domain/models"
	"github.com/meetwise-ai/meeting-agent-service/internal/infrastructure/store"
	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
)

const (
	// transcriptMaxDeliver caps redeliveries of one transcript job before
	// the queue gives up on it.
	transcriptMaxDeliver = 5
	// transcriptAckWait is how long a consumed job may run before the
	// queue considers it lost and redelivers.
	transcriptAckWait = 5 * time.Minute
)

// repositories bundles the NATS KV store repositories of the service.
type repositories struct {
	Meeting *store.NatsMeetingRepository
	Agent   *store.NatsAgentRepository
	User    *store.NatsUserRepository
}

// setupNATS connects to the NATS server.
func setupNATS(env environment) (*nats.Conn, error) {
	natsConn, err := nats.Connect(env.NatsURL,
		nats.Name("meeting-agent-service"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.With(logging.ErrKey, err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.With("nats_url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", env.NatsURL, err)
	}

	slog.With("nats_url", env.NatsURL).Info("connected to NATS")
	return natsConn, nil
}

// getKeyValueStores creates the JetStream context and the KV buckets backing
// the repositories.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (jetstream.JetStream, *repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	buckets := make(map[string]jetstream.KeyValue, 3)
	for _, bucket := range []string{
		store.KVStoreNameMeetings,
		store.KVStoreNameAgents,
		store.KVStoreNameUsers,
	} {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:  bucket,
			History: 1,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create KV bucket %s: %w", bucket, err)
		}
		buckets[bucket] = kv
	}

	repos := &repositories{
		Meeting: store.NewNatsMeetingRepository(buckets[store.KVStoreNameMeetings]),
		Agent:   store.NewNatsAgentRepository(buckets[store.KVStoreNameAgents]),
		User:    store.NewNatsUserRepository(buckets[store.KVStoreNameUsers]),
	}
	return js, repos, nil
}

// startTranscriptConsumer provisions the transcript work-queue stream and
// starts its durable consumer.
func startTranscriptConsumer(ctx context.Context, js jetstream.JetStream, handler domain.JobHandler) (jetstream.ConsumeContext, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      models.TranscriptStreamName,
		Subjects:  []string{models.TranscriptProcessSubject},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    models.TranscriptConsumerName,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    transcriptAckWait,
		MaxDeliver: transcriptMaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		handler.HandleJob(ctx, &natsJobMessage{msg: msg})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start transcript consumer: %w", err)
	}

	slog.With("stream", models.TranscriptStreamName, "consumer", models.TranscriptConsumerName).
		Info("transcript consumer started")
	return consumeCtx, nil
}

// natsJobMessage adapts a JetStream message to the domain queue contract.
type natsJobMessage struct {
	msg jetstream.Msg
}

func (m *natsJobMessage) Subject() string {
	return m.msg.Subject()
}

func (m *natsJobMessage) Data() []byte {
	return m.msg.Data()
}

func (m *natsJobMessage) Ack() error {
	return m.msg.Ack()
}

func (m *natsJobMessage) Nak() error {
	return m.msg.Nak()
}

func (m *natsJobMessage) DeliveryAttempt() uint64 {
	meta, err := m.msg.Metadata()
	if err != nil {
		return 0
	}
	return meta.NumDelivered
}
