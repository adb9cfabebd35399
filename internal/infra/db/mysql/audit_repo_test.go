package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	domain "github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO sar_audit_events").
		WithArgs("ev-1", "acme", "SAR_GENERATION", "u1", "SAR-1", "GENERATE_NARRATIVE", `{"risk_score":70}`, ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAuditRepository(db)
	err = repo.Record(context.Background(), &domain.Event{
		ID: "ev-1", TenantID: "acme", EventType: domain.EventSARGeneration, ActorID: "u1",
		SubjectID: "SAR-1", Action: domain.ActionGenerateNarrative,
		Details: map[string]any{"risk_score": 70}, Timestamp: ts,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_RecordDashesEmptyFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO sar_audit_events").
		WithArgs("ev-2", "-", "ALERT_INTAKE", "-", "-", "CALCULATE_PRIORITY", "{}", sqlmock.AnyArg()).
		WillReturnError(errors.New("deadlock"))

	err = NewAuditRepository(db).Record(context.Background(), &domain.Event{
		ID: "ev-2", EventType: domain.EventAlertIntake, Action: domain.ActionCalculatePriority,
	})

	assert.EqualError(t, err, "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
