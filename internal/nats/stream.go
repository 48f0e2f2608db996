package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/klamlamwork/playroom/internal/model"
)

const (
	// StreamName is the name of the domain event stream.
	StreamName = "PLAYROOM"

	// SubjectPrefix is the prefix for all domain event subjects.
	SubjectPrefix = "playroom"

	// SessionBucket is the key-value bucket holding chat sessions.
	SessionBucket = "PLAYROOM_CHAT_SESSIONS"
)

// StreamManager publishes domain events to the PLAYROOM stream.
type StreamManager struct {
	js jetstream.JetStream
}

func ensureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Playroom recommendation and completion events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func ensureSessionBucket(ctx context.Context, js jetstream.JetStream, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, SessionBucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("failed to open session bucket: %w", err)
	}

	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      SessionBucket,
		Description: "Activity finder conversation state",
		TTL:         ttl,
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}
	return kv, nil
}

// EventSubject returns the subject for an event.
func EventSubject(event *model.DomainEvent) string {
	if event.Subject != "" {
		return fmt.Sprintf("%s.%s.%s", SubjectPrefix, event.Type, event.Subject)
	}
	return fmt.Sprintf("%s.%s", SubjectPrefix, event.Type)
}

// Publish publishes a domain event to JetStream.
func (m *StreamManager) Publish(ctx context.Context, event *model.DomainEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.js.Publish(ctx, EventSubject(event), data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}
