package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"librarysvc/internal/library"
	"librarysvc/internal/redisx"
)

// Recorder persists one consumed event. postgres.AuditRepo implements it.
type Recorder interface {
	Record(ctx context.Context, eventID, eventType, correlationID string, payload json.RawMessage, occurredAt time.Time) error
}

// Service consumes domain events and appends them to the audit log. Redis
// dedup short-circuits redeliveries before they hit Postgres; the unique
// event_id constraint catches whatever slips past an expired dedup key.
type Service struct {
	Repo        Recorder
	Redis       *redis.Client
	ServiceName string
}

// HandleEvent is wired as the consumer handler for every library topic.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env library.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	if err := s.Repo.Record(ctx, env.EventID, env.EventType, env.CorrelationID, env.Payload, env.OccurredAt); err != nil {
		return err
	}
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}
