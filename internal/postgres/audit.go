package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepo appends consumed domain events to the audit log. Inserts are
// keyed by event id, so redelivered events are no-ops.
type AuditRepo struct{ DB *pgxpool.Pool }

func (r *AuditRepo) Record(ctx context.Context, eventID, eventType, correlationID string, payload json.RawMessage, occurredAt time.Time) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO audit_log(event_id, event_type, correlation_id, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType, correlationID, payload, occurredAt)
	return err
}
