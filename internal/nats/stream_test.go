package nats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klamlamwork/playroom/internal/model"
)

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "playroom.chat.recommendation",
		EventSubject(&model.DomainEvent{Type: model.EventTypeRecommendation}))
	assert.Equal(t, "playroom.completion.five_min_fun",
		EventSubject(&model.DomainEvent{Type: model.EventTypeCompletion, Subject: string(model.CompletionFiveMinFun)}))
}

func TestPublish(t *testing.T) {
	js := &fakeJetStream{}
	m := &StreamManager{js: js}

	seq, err := m.Publish(context.Background(), &model.DomainEvent{
		ID:        "evt-1",
		Type:      model.EventTypeCompletion,
		Subject:   string(model.CompletionEvent),
		AccountID: 5,
		Metadata:  map[string]any{"created": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	require.Len(t, js.published, 1)
	assert.Equal(t, "playroom.completion.event", js.published[0].subject)

	var got model.DomainEvent
	require.NoError(t, json.Unmarshal(js.published[0].data, &got))
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, int64(5), got.AccountID)
	assert.Equal(t, float64(2), got.Metadata["created"])
}
