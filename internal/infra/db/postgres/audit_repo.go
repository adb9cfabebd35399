package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/automaton-sar/internal/domain/audit"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends e. A replayed event id is ignored so retries stay append-only.
func (r *AuditRepository) Record(ctx context.Context, e *domain.Event) error {
	const q = `
INSERT INTO sar_audit_events
  (id, tenant_id, event_type, actor_id, subject_id, action, details, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING;
`
	details := []byte("{}")
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}
	createdAt := e.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID, stringOrDash(e.TenantID), string(e.EventType), stringOrDash(e.ActorID),
		stringOrDash(e.SubjectID), e.Action, details, createdAt)
	return err
}
