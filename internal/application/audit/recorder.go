package audit

import (
	"context"

	"github.com/bryanwahyu/automaton-sar/internal/application"
	"github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FailureCounter is told about every sink write that failed.
type FailureCounter interface {
	AuditFailed(sink string)
}

// NamedSink labels a sink for logs and metrics.
type NamedSink struct {
	Name string
	Sink audit.Sink
}

// Recorder stamps audit events and fans them out to every configured sink.
// A failing sink is logged and counted; it never fails the caller.
type Recorder struct {
	Sinks   []NamedSink
	Clock   application.Clock
	Log     *zap.Logger
	Metrics FailureCounter
}

func NewRecorder(log *zap.Logger, clock application.Clock, sinks ...NamedSink) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Recorder{Sinks: sinks, Clock: clock, Log: log}
}

// Record assigns ID and Timestamp when unset, then writes e to each sink in order.
func (r *Recorder) Record(ctx context.Context, e *audit.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.Clock.Now()
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	for _, s := range r.Sinks {
		if err := s.Sink.Record(ctx, e); err != nil {
			r.Log.Warn("audit sink failed",
				zap.String("sink", s.Name),
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.EventType)),
				zap.Error(err))
			if r.Metrics != nil {
				r.Metrics.AuditFailed(s.Name)
			}
		}
	}
}

// LogSink writes events to the structured log. It is the sink of last
// resort when no durable sink is configured.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Record(_ context.Context, e *audit.Event) error {
	s.Log.Info("audit event",
		zap.String("event_id", e.ID),
		zap.String("tenant", e.TenantID),
		zap.String("event_type", string(e.EventType)),
		zap.String("actor", e.ActorID),
		zap.String("subject", e.SubjectID),
		zap.String("action", e.Action),
		zap.Any("details", e.Details))
	return nil
}
