// Package service provides business logic for the playroom platform.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/pkg/logger"
)

var (
	// ErrUnauthorized is returned when the account role may not use a feature.
	ErrUnauthorized = errors.New("account role not allowed")

	// ErrProfileMissing is returned when the authenticated account has no profile.
	ErrProfileMissing = errors.New("account profile not found")

	// ErrNotFound is returned when a referenced item does not exist or is not
	// visible to the account.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest is returned for malformed completion requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event *model.DomainEvent) (uint64, error)
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ctx context.Context, event *model.DomainEvent) (uint64, error) {
	return 0, nil
}

// publish sends an event and logs failures; delivery never fails the request.
func publish(ctx context.Context, p Publisher, log *logger.Logger, eventType model.EventType, subject string, accountID int64, metadata map[string]any) {
	if p == nil {
		return
	}
	event := &model.DomainEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      eventType,
		Subject:   subject,
		AccountID: accountID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := p.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event",
			zap.String("event_type", string(eventType)),
			zap.Int64("account_id", accountID),
			zap.Error(err),
		)
	}
}
