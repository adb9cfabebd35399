package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryanwahyu/automaton-sar/internal/application"
	"github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memSink struct {
	events []*audit.Event
	err    error
}

func (m *memSink) Record(_ context.Context, e *audit.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

type countFailures map[string]int

func (c countFailures) AuditFailed(sink string) { c[sink]++ }

func TestRecorder_StampsAndFansOut(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a, b := &memSink{}, &memSink{}
	r := NewRecorder(zap.NewNop(), application.FixedClock(at), NamedSink{"a", a}, NamedSink{"b", b})

	r.Record(context.Background(), &audit.Event{EventType: audit.EventSARGeneration, Action: audit.ActionGenerateNarrative})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	e := a.events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, at, e.Timestamp)
	assert.NotNil(t, e.Details)
	assert.Same(t, e, b.events[0])
}

func TestRecorder_KeepsCallerIDAndTimestamp(t *testing.T) {
	sink := &memSink{}
	r := NewRecorder(nil, nil, NamedSink{"mem", sink})
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	r.Record(context.Background(), &audit.Event{ID: "fixed", Timestamp: at})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "fixed", sink.events[0].ID)
	assert.Equal(t, at, sink.events[0].Timestamp)
}

func TestRecorder_SinkFailureIsSwallowed(t *testing.T) {
	broken := &memSink{err: errors.New("db down")}
	ok := &memSink{}
	failures := countFailures{}
	r := NewRecorder(zap.NewNop(), nil, NamedSink{"mysql", broken}, NamedSink{"kafka", ok})
	r.Metrics = failures

	assert.NotPanics(t, func() {
		r.Record(context.Background(), &audit.Event{EventType: audit.EventAlertIntake})
	})
	assert.Len(t, ok.events, 1)
	assert.Equal(t, 1, failures["mysql"])
	assert.Zero(t, failures["kafka"])
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := LogSink{Log: zap.New(core)}

	err := sink.Record(context.Background(), &audit.Event{ID: "ev-1", EventType: audit.EventSARGeneration, SubjectID: "SAR-1"})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "SAR_GENERATION", fields["event_type"])
	assert.Equal(t, "SAR-1", fields["subject"])
}
