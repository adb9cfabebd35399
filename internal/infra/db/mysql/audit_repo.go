package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/automaton-sar/internal/domain/audit"
)

// AuditRepository appends audit events to sar_audit_events. Rows are never
// updated or deleted.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Record(ctx context.Context, e *domain.Event) error {
	const q = `
INSERT INTO sar_audit_events
  (id, tenant_id, event_type, actor_id, subject_id, action, details_json, created_at)
VALUES (?,?,?,?,?,?,?,?)
`
	details, err := detailsJSON(e.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	created := e.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, q,
		e.ID, stringOrDash(e.TenantID), string(e.EventType), stringOrDash(e.ActorID),
		stringOrDash(e.SubjectID), e.Action, details, created)
	return err
}
