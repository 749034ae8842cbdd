package changefeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasabuy/pasabuy-backend/pkg/enums"
)

type fakeBroker struct {
	channels []string
	payloads [][]byte
	err      error
}

func (f *fakeBroker) RequestChangesChannel() string { return "pb:changes:requests" }

func (f *fakeBroker) ThreadChangesChannel(threadID string) string {
	return "pb:changes:thread:" + threadID
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message any) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, message.([]byte))
	return 1, nil
}

func TestPublisherRequestChanged(t *testing.T) {
	broker := &fakeBroker{}
	pub := NewPublisher(broker, nil)
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }
	id := uuid.New()

	pub.RequestChanged(context.Background(), id, enums.RequestStatusAccepted)

	require.Len(t, broker.channels, 1)
	assert.Equal(t, "pb:changes:requests", broker.channels[0])
	event, err := Decode(string(broker.payloads[0]))
	require.NoError(t, err)
	assert.Equal(t, KindRequest, event.Kind)
	assert.Equal(t, id.String(), event.ID)
	assert.Equal(t, "accepted", event.Status)
	assert.True(t, fixed.Equal(event.OccurredAt))
}

func TestPublisherRequestRemoved(t *testing.T) {
	broker := &fakeBroker{}
	id := uuid.New()
	NewPublisher(broker, nil).RequestRemoved(context.Background(), id)

	require.Len(t, broker.payloads, 1)
	event, err := Decode(string(broker.payloads[0]))
	require.NoError(t, err)
	assert.Equal(t, StatusRemoved, event.Status)
	assert.Equal(t, id.String(), event.ID)
}

func TestPublisherThreadChanged(t *testing.T) {
	broker := &fakeBroker{}
	NewPublisher(broker, nil).ThreadChanged(context.Background(), "p_r_q")

	require.Len(t, broker.channels, 1)
	assert.Equal(t, "pb:changes:thread:p_r_q", broker.channels[0])
	event, err := Decode(string(broker.payloads[0]))
	require.NoError(t, err)
	assert.Equal(t, KindThread, event.Kind)
	assert.Empty(t, event.Status)
}

func TestPublisherSwallowsErrors(t *testing.T) {
	broker := &fakeBroker{err: errors.New("redis down")}
	NewPublisher(broker, nil).ThreadChanged(context.Background(), "t")
	assert.Empty(t, broker.channels)

	var nilPub *Publisher
	nilPub.RequestChanged(context.Background(), uuid.New(), enums.RequestStatusActive)
	NewPublisher(nil, nil).ThreadChanged(context.Background(), "t")
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode(`{"kind":"order","id":"x"}`)
	assert.Error(t, err)
	_, err = Decode(`not json`)
	assert.Error(t, err)
}

func TestWatchRequiresSource(t *testing.T) {
	_, err := Watch(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}

func TestRequestStatusVisibleToParticipantsOnly(t *testing.T) {
	broker := &fakeBroker{}
	requester, pasabuyer, stranger := uuid.New(), uuid.New(), uuid.New()
	id := uuid.New()
	NewPublisher(broker, nil).RequestChanged(context.Background(), id, enums.RequestStatusDelivered, requester, pasabuyer)

	require.Len(t, broker.payloads, 1)
	event, err := Decode(string(broker.payloads[0]))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{requester.String(), pasabuyer.String()}, event.Participants)

	for _, user := range []uuid.UUID{requester, pasabuyer} {
		seen := event.VisibleTo(user)
		assert.Equal(t, "delivered", seen.Status)
		assert.Nil(t, seen.Participants)
	}

	seen := event.VisibleTo(stranger)
	assert.Equal(t, id.String(), seen.ID)
	assert.Empty(t, seen.Status)
	assert.Nil(t, seen.Participants)
}

func TestThreadEventsPassThroughVisibleTo(t *testing.T) {
	event := ChangeEvent{Kind: KindThread, ID: "p_r_q"}
	assert.Equal(t, event, event.VisibleTo(uuid.New()))
}
