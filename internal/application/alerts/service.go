package alerts

import (
	"context"

	"github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/bryanwahyu/automaton-sar/internal/domain/priority"
	"go.uber.org/zap"
)

type Auditor interface {
	Record(ctx context.Context, e *audit.Event)
}

type Metrics interface {
	AlertScored(priority string)
}

// Alert is an incoming monitoring alert awaiting triage.
type Alert struct {
	ID           string              `json:"alert_id,omitempty"`
	CustomerID   string              `json:"customer_id"`
	AlertType    string              `json:"alert_type"`
	AlertReason  string              `json:"alert_reason"`
	KYC          map[string]any      `json:"kyc_data"`
	Transactions []cases.Transaction `json:"transaction_data"`
}

type IntakeResult struct {
	AlertID string `json:"alert_id"`
	priority.Score
}

// Service triages alerts by priority. Scoring is pure; only the audit
// record and metrics have side effects.
type Service struct {
	Audit   Auditor
	Metrics Metrics
	Log     *zap.Logger
}

func NewService(auditor Auditor, metrics Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Audit: auditor, Metrics: metrics, Log: log}
}

// Intake assigns an alert ID when missing, scores the alert and records an
// ALERT_INTAKE audit event.
func (s *Service) Intake(ctx context.Context, tenantID, actorID string, a Alert) IntakeResult {
	if a.ID == "" {
		a.ID = cases.NewAlertID()
	}
	score := priority.Calculate(a.Transactions, a.AlertType, a.KYC, a.AlertReason)

	if s.Audit != nil {
		s.Audit.Record(ctx, &audit.Event{
			TenantID:  tenantID,
			EventType: audit.EventAlertIntake,
			ActorID:   actorID,
			SubjectID: a.ID,
			Action:    audit.ActionCalculatePriority,
			Details: map[string]any{
				"customer_id": a.CustomerID,
				"alert_type":  a.AlertType,
				"priority":    score.Priority,
				"total_score": score.TotalScore,
				"breakdown":   score.Breakdown,
			},
		})
	}
	if s.Metrics != nil {
		s.Metrics.AlertScored(string(score.Priority))
	}
	s.Log.Info("alert scored",
		zap.String("tenant", tenantID),
		zap.String("alert_id", a.ID),
		zap.String("priority", string(score.Priority)),
		zap.Int("total_score", score.TotalScore))
	return IntakeResult{AlertID: a.ID, Score: score}
}

// Explain returns the score with its threshold table. Nothing is recorded.
func (s *Service) Explain(a Alert) priority.Explanation {
	return priority.Explain(a.Transactions, a.AlertType, a.KYC, a.AlertReason)
}
