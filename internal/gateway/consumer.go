package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/racebothq/racebot/internal/events"
)

// ConsumerConfig holds the JetStream consumer settings for the gateway.
type ConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		StreamName:    events.StreamName,
		ConsumerName:  "race-gateway",
		SubjectFilter: events.SubjectPrefix + ".>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventConsumer reads race events off JetStream and hands them to the
// connection manager.
type EventConsumer struct {
	manager  *Manager
	consumer jetstream.Consumer
	config   ConsumerConfig
}

func NewEventConsumer(ctx context.Context, js jetstream.JetStream, manager *Manager, config ConsumerConfig) (*EventConsumer, error) {
	stream, err := js.Stream(ctx, config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", config.StreamName, err)
	}

	consumer, err := stream.Consumer(ctx, config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          config.ConsumerName,
			Durable:       config.ConsumerName,
			Description:   "race gateway WebSocket consumer",
			FilterSubject: config.SubjectFilter,
			DeliverPolicy: jetstream.DeliverNewPolicy,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    config.MaxDeliver,
			AckWait:       config.AckWait,
			MaxAckPending: config.MaxAckPending,
		})
		if err != nil {
			return nil, fmt.Errorf("create consumer %s: %w", config.ConsumerName, err)
		}
		log.Info().Str("consumer", config.ConsumerName).Str("stream", config.StreamName).Msg("created JetStream consumer")
	}

	return &EventConsumer{manager: manager, consumer: consumer, config: config}, nil
}

// Start consumes until the context is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.processMessage(msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process event")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("gateway event consumer started")

	<-ctx.Done()
	consumeCtx.Stop()
	return nil
}

func (ec *EventConsumer) processMessage(msg jetstream.Msg) error {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}
	ec.manager.Broadcast(&env)
	return nil
}
