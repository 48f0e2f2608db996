package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klamlamwork/playroom/internal/model"
)

func newCompletionFixture() (*CompletionService, *fakeStore, *fakePublisher) {
	st := fixtureStore()
	pub := &fakePublisher{}
	svc := NewCompletionService(st, pub, nil)
	return svc, st, pub
}

func TestMarkFiveMinFunIsIdempotent(t *testing.T) {
	svc, _, pub := newCompletionFixture()
	ctx := context.Background()
	req := &model.MarkFiveMinFunRequest{ActivityID: 101, KidIDs: []int64{20, 21}}

	res, err := svc.MarkFiveMinFun(ctx, 1, req)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, "Marked as completed for 2 kid(s)!", res.Message)

	res, err = svc.MarkFiveMinFun(ctx, 1, req)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, []string{"Mia", "Leo"}, res.AlreadyCompleted)
	assert.Equal(t, "Already completed today for selected kids. (Mia, Leo)", res.Error)

	require.Len(t, pub.events, 1)
	assert.Equal(t, model.EventTypeCompletion, pub.events[0].Type)
	assert.Equal(t, string(model.CompletionFiveMinFun), pub.events[0].Subject)
}

func TestMarkFiveMinFunValidation(t *testing.T) {
	svc, _, _ := newCompletionFixture()
	ctx := context.Background()

	_, err := svc.MarkFiveMinFun(ctx, 1, &model.MarkFiveMinFunRequest{ActivityID: 101})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.MarkFiveMinFun(ctx, 1, &model.MarkFiveMinFunRequest{ActivityID: 101, KidIDs: []int64{30}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MarkFiveMinFun(ctx, 1, &model.MarkFiveMinFunRequest{ActivityID: 1, KidIDs: []int64{20}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MarkFiveMinFun(ctx, 2, &model.MarkFiveMinFunRequest{ActivityID: 101, KidIDs: []int64{20}})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMarkEventRequiresRegistration(t *testing.T) {
	svc, st, _ := newCompletionFixture()
	ctx := context.Background()
	st.registrations[[2]int64{3, 20}] = true

	res, err := svc.MarkEvent(ctx, 1, &model.MarkEventRequest{EventID: 3, KidIDs: []int64{20, 21}, Date: "2026-06-06"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []string{"Leo"}, res.NotRegistered)
	assert.Equal(t, "Marked as completed for 1 kid(s)! Skipped not registered: Leo", res.Message)

	res, err = svc.MarkEvent(ctx, 1, &model.MarkEventRequest{EventID: 3, KidIDs: []int64{20, 21}, Date: "2026-06-06"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Already completed: Mia. Not registered: Leo.", res.Error)
}

func TestMarkEventShortPlaySkipsRegistration(t *testing.T) {
	svc, _, _ := newCompletionFixture()

	res, err := svc.MarkEvent(context.Background(), 1, &model.MarkEventRequest{EventID: 4, KidIDs: []int64{21}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.NotRegistered)
}

func TestMarkEventRejectsBadDate(t *testing.T) {
	svc, _, _ := newCompletionFixture()

	_, err := svc.MarkEvent(context.Background(), 1, &model.MarkEventRequest{EventID: 4, KidIDs: []int64{21}, Date: "06/06/2026"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMarkRoutineInstance(t *testing.T) {
	svc, st, pub := newCompletionFixture()
	ctx := context.Background()
	st.instances[1] = model.RoutineInstance{ID: 1, KidID: 20, Name: "Calm Mornings"}
	st.instances[2] = model.RoutineInstance{ID: 2, KidID: 99, Name: "Someone else"}

	res, err := svc.MarkRoutineInstance(ctx, 1, &model.MarkRoutineInstanceRequest{RoutineInstanceID: 1})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = svc.MarkRoutineInstance(ctx, 1, &model.MarkRoutineInstanceRequest{RoutineInstanceID: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Already completed.", res.Error)

	_, err = svc.MarkRoutineInstance(ctx, 1, &model.MarkRoutineInstanceRequest{RoutineInstanceID: 2})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MarkRoutineInstance(ctx, 1, &model.MarkRoutineInstanceRequest{RoutineInstanceID: 3})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, pub.events, 1)
}
