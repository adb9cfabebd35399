package audit

import "time"

type EventType string

const (
	EventSARGeneration EventType = "SAR_GENERATION"
	EventSARApproval   EventType = "SAR_APPROVAL"
	EventAlertIntake   EventType = "ALERT_INTAKE"
)

const (
	ActionGenerateNarrative = "GENERATE_NARRATIVE"
	ActionApproved          = "APPROVED"
	ActionCalculatePriority = "CALCULATE_PRIORITY"
)

// Event is one append-only audit record.
type Event struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	EventType EventType      `json:"event_type"`
	ActorID   string         `json:"actor_id"`
	SubjectID string         `json:"subject_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}
