package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarysvc/internal/audit"
	"librarysvc/internal/library"
)

type recordedEvent struct {
	eventID       string
	eventType     string
	correlationID string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) Record(_ context.Context, eventID, eventType, correlationID string, _ json.RawMessage, _ time.Time) error {
	r.events = append(r.events, recordedEvent{eventID, eventType, correlationID})
	return nil
}

func TestHandleEvent(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &audit.Service{Repo: rec, ServiceName: "auditor-test"}

	env := library.Envelope{
		EventID:       "ev-1",
		EventType:     library.EventBorrowCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "library-api",
		CorrelationID: "borrow-1",
		Payload:       json.RawMessage(`{"borrow_id":"borrow-1"}`),
	}
	value, err := json.Marshal(env)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), kafkago.Message{Value: value})
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "ev-1", rec.events[0].eventID)
	assert.Equal(t, library.EventBorrowCreated, rec.events[0].eventType)
	assert.Equal(t, "borrow-1", rec.events[0].correlationID)
}

func TestHandleEventBadPayload(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &audit.Service{Repo: rec}

	err := svc.HandleEvent(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err)
	assert.Empty(t, rec.events)
}
