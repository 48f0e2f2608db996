package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/klamlamwork/playroom/internal/dialogue"
)

// KVStore keeps sessions in a JetStream key-value bucket. Expiry is the
// bucket's TTL.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore wraps an existing bucket.
func NewKVStore(kv jetstream.KeyValue) *KVStore {
	return &KVStore{kv: kv}
}

// Load fetches and decodes the state.
func (s *KVStore) Load(ctx context.Context, key Key) (dialogue.State, error) {
	e, err := s.kv.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return dialogue.State{}, ErrNotFound
		}
		return dialogue.State{}, fmt.Errorf("failed to get session: %w", err)
	}

	var state dialogue.State
	if err := json.Unmarshal(e.Value(), &state); err != nil {
		return dialogue.State{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return state, nil
}

// Save encodes and puts the state.
func (s *KVStore) Save(ctx context.Context, key Key, state dialogue.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if _, err := s.kv.Put(ctx, key.String(), data); err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}
	return nil
}

// Delete removes the state.
func (s *KVStore) Delete(ctx context.Context, key Key) error {
	if err := s.kv.Delete(ctx, key.String()); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
