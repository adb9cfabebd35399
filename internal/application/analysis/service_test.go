package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/automaton-sar/internal/application"
	"github.com/bryanwahyu/automaton-sar/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-sar/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/bryanwahyu/automaton-sar/internal/domain/risk"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedAI struct {
	replies []string
	failAt  int
	err     error
	prompts []string
}

func (s *scriptedAI) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	n := len(s.prompts)
	if s.err != nil && n == s.failAt {
		return "", s.err
	}
	return s.replies[n-1], nil
}

// echoPrompter renders prompts that expose their inputs to assertions.
type echoPrompter struct {
	reference string
	combined  domain.StageResult
	narrative string
	facts     string
}

func (p *echoPrompter) CombinedAnalysis(caseText string) string { return "combined:" + caseText }

func (p *echoPrompter) NarrativeSynthesis(reference string, combined domain.StageResult, caseText string) string {
	p.reference, p.combined = reference, combined
	return "narrative:" + reference
}

func (p *echoPrompter) PostAnalysis(narrative, facts string) string {
	p.narrative, p.facts = narrative, facts
	return "post:" + narrative
}

type fakeKnowledge struct {
	queries []string
	k       int
	reply   string
	learned map[string]string
	meta    map[string]string
}

func (f *fakeKnowledge) Retrieve(_ context.Context, query string, k int) string {
	f.queries = append(f.queries, query)
	f.k = k
	return f.reply
}

func (f *fakeKnowledge) LearnApproved(_ context.Context, caseID, narrative string, meta map[string]string) {
	if f.learned == nil {
		f.learned = map[string]string{}
	}
	f.learned[caseID] = narrative
	f.meta = meta
}

type fakeAuditor struct{ events []*audit.Event }

func (f *fakeAuditor) Record(_ context.Context, e *audit.Event) { f.events = append(f.events, e) }

type fakeArchive struct {
	key string
	v   any
	err error
}

func (f *fakeArchive) PutJSON(_ context.Context, key string, v any) (string, error) {
	f.key, f.v = key, v
	if f.err != nil {
		return "", f.err
	}
	return "http://minio/sar/" + key, nil
}

type stageMetrics struct {
	stages   []string
	failed   []string
	outcomes []string
}

func (m *stageMetrics) ObserveStage(stage string, _ time.Duration, err error) {
	m.stages = append(m.stages, stage)
	if err != nil {
		m.failed = append(m.failed, stage)
	}
}

func (m *stageMetrics) AnalysisFinished(outcome, level string) {
	m.outcomes = append(m.outcomes, outcome+"/"+level)
}

const (
	combinedReply = `=== FACTS ===
8 cash deposits between $9,400 and $9,900.
=== RED FLAGS ===
Deposits just under the reporting threshold.
=== TYPOLOGY ===
Structuring
=== CONFIDENCE ===
High
=== TIMELINE ===
Jan 2 to Jan 9.
=== REASONING ===
Amounts cluster below $10,000.`

	narrativeReply = `=== SAR NARRATIVE ===
The subject made eight cash deposits.
=== QUALITY CHECK ===
Complete.
=== REGULATORY HIGHLIGHTS ===
31 CFR 1010.314.
=== EXECUTIVE SUMMARY ===
Likely structuring.`

	postReply = `=== EVIDENCE MAP ===
Deposit 1 -> statement line 4.
=== CONTRADICTIONS ===
None.
=== PII CHECK ===
No SSN exposed.
=== NEXT ACTIONS ===
File SAR.
=== IMPROVEMENTS ===
Add branch detail.`
)

func structuringInput() cases.Input {
	txns := make([]cases.Transaction, 0, 8)
	for _, a := range []float64{9500, 9800, 9400, 9900, 9600, 9700, 9450, 9750} {
		txns = append(txns, cases.Transaction{"amount": a, "counterparty": "Cash"})
	}
	return cases.Input{
		Customer:     map[string]any{"customer_id": "C-1", "name": "Jane Roe"},
		KYC:          map[string]any{"occupation": "teacher"},
		Transactions: txns,
		AlertReason:  "Possible structuring below CTR threshold",
	}
}

type fixture struct {
	svc       *Service
	ai        *scriptedAI
	prompts   *echoPrompter
	knowledge *fakeKnowledge
	audit     *fakeAuditor
	archive   *fakeArchive
	metrics   *stageMetrics
}

func newFixture() *fixture {
	f := &fixture{
		ai:        &scriptedAI{replies: []string{combinedReply, narrativeReply, postReply}},
		prompts:   &echoPrompter{},
		knowledge: &fakeKnowledge{reply: "REFERENCE TEMPLATE"},
		audit:     &fakeAuditor{},
		archive:   &fakeArchive{},
		metrics:   &stageMetrics{},
	}
	f.svc = &Service{
		AI:          f.ai,
		Knowledge:   f.knowledge,
		Prompts:     f.prompts,
		Audit:       f.audit,
		Archive:     f.archive,
		Metrics:     f.metrics,
		Clock:       application.FixedClock(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)),
		Log:         zap.NewNop(),
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		RetrievalK:  3,
	}
	return f
}

func TestAnalyze_RunsStagesInOrder(t *testing.T) {
	f := newFixture()
	in := structuringInput()

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{TenantID: "acme", CaseID: "SAR-0000ABCD", ActorID: "u1", Input: in})

	require.NoError(t, err)
	caseText := cases.BuildContext(in)
	require.Len(t, f.ai.prompts, 3)
	assert.Equal(t, "combined:"+caseText, f.ai.prompts[0])
	assert.Equal(t, "narrative:REFERENCE TEMPLATE", f.ai.prompts[1])
	assert.Equal(t, "post:The subject made eight cash deposits.", f.ai.prompts[2])

	assert.Equal(t, []string{caseText}, f.knowledge.queries)
	assert.Equal(t, 3, f.knowledge.k)
	assert.Equal(t, "Structuring", f.prompts.combined.Get(domain.SectionTypology))
	assert.Equal(t, "8 cash deposits between $9,400 and $9,900.", f.prompts.facts)

	assert.Equal(t, cases.CaseID("SAR-0000ABCD"), res.CaseID)
	assert.Equal(t, "The subject made eight cash deposits.", res.Narrative)
	require.Len(t, res.Stages, 3)
	assert.Equal(t, domain.StagePost, res.Stages[2].Stage)
	assert.Equal(t, postReply, res.Stages[2].Raw)
	assert.Equal(t, []string{"combined_analysis", "narrative_synthesis", "post_analysis"}, f.metrics.stages)
}

func TestAnalyze_MergesStagesWithRisk(t *testing.T) {
	f := newFixture()
	in := structuringInput()

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{CaseID: "SAR-1", Input: in})
	require.NoError(t, err)

	want := domain.Comprehensive{
		Facts:                "8 cash deposits between $9,400 and $9,900.",
		RedFlags:             "Deposits just under the reporting threshold.",
		Typology:             "Structuring",
		TypologyConfidence:   "High",
		Timeline:             "Jan 2 to Jan 9.",
		ReasoningTrace:       "Amounts cluster below $10,000.",
		Narrative:            "The subject made eight cash deposits.",
		QualityCheck:         "Complete.",
		RegulatoryHighlights: "31 CFR 1010.314.",
		ExecutiveSummary:     "Likely structuring.",
		EvidenceMap:          "Deposit 1 -> statement line 4.",
		Contradictions:       "None.",
		PIICheck:             "No SSN exposed.",
		NextActions:          "File SAR.",
		Improvements:         "Add branch detail.",
		RiskAnalysis:         risk.Score(in),
		Model:                "gpt-4o-mini",
		Temperature:          0.3,
	}
	if diff := cmp.Diff(want, res.Analysis); diff != "" {
		t.Errorf("merged analysis mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.BuildTrace(in), res.Trace)
}

func TestAnalyze_GeneratesCaseIDWhenMissing(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Input: structuringInput()})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(res.CaseID), "SAR-"))
	assert.NotEmpty(t, res.RunID)
}

func TestAnalyze_ArchivesAndAudits(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{TenantID: "acme", CaseID: "SAR-2", ActorID: "analyst-7", Input: structuringInput()})
	require.NoError(t, err)

	assert.Equal(t, "acme/analyses/SAR-2/"+res.RunID+".json", f.archive.key)
	assert.Equal(t, "http://minio/sar/"+f.archive.key, res.ArchiveURL)

	require.Len(t, f.audit.events, 1)
	ev := f.audit.events[0]
	assert.Equal(t, audit.EventSARGeneration, ev.EventType)
	assert.Equal(t, audit.ActionGenerateNarrative, ev.Action)
	assert.Equal(t, "acme", ev.TenantID)
	assert.Equal(t, "analyst-7", ev.ActorID)
	assert.Equal(t, "SAR-2", ev.SubjectID)
	assert.Equal(t, "gpt-4o-mini", ev.Details["llm_model"])
	assert.Equal(t, res.Analysis.RiskAnalysis.Score, ev.Details["risk_score"])
	assert.Equal(t, res.ArchiveURL, ev.Details["archive_url"])
	assert.Equal(t, []string{"completed/" + string(res.Analysis.RiskAnalysis.Level)}, f.metrics.outcomes)
}

func TestAnalyze_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.archive.err = errors.New("bucket gone")

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{CaseID: "SAR-3", Input: structuringInput()})

	require.NoError(t, err)
	assert.Empty(t, res.ArchiveURL)
	require.Len(t, f.audit.events, 1)
	assert.NotContains(t, f.audit.events[0].Details, "archive_url")
}

func TestAnalyze_StageFailureAbortsRun(t *testing.T) {
	for stage, failAt := range map[string]int{"combined_analysis": 1, "narrative_synthesis": 2, "post_analysis": 3} {
		t.Run(stage, func(t *testing.T) {
			f := newFixture()
			f.ai.failAt, f.ai.err = failAt, errors.New("upstream reset")

			res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{CaseID: "SAR-4", Input: structuringInput()})

			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ai.ErrGeneration)
			assert.True(t, IsGenerationError(err))
			assert.Contains(t, err.Error(), stage)
			assert.Len(t, f.ai.prompts, failAt)
			assert.Empty(t, f.audit.events)
			assert.Empty(t, f.archive.key)
			assert.Equal(t, []string{stage}, f.metrics.failed)
			assert.Equal(t, []string{"failed/"}, f.metrics.outcomes)
		})
	}
}

func TestAnalyze_QuotaErrorStaysInChain(t *testing.T) {
	f := newFixture()
	f.ai.failAt, f.ai.err = 2, errors.Join(ai.ErrQuotaExceeded, errors.New("429"))

	_, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Input: structuringInput()})

	assert.ErrorIs(t, err, ai.ErrGeneration)
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
}

func TestAnalyze_EmptyReferenceStillGenerates(t *testing.T) {
	f := newFixture()
	f.knowledge.reply = ""

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Input: structuringInput()})

	require.NoError(t, err)
	assert.Equal(t, "narrative:", f.ai.prompts[1])
	assert.NotEmpty(t, res.Narrative)
}

func TestAnalyze_MissingSectionsAreEmpty(t *testing.T) {
	f := newFixture()
	f.ai.replies = []string{"no markers at all", narrativeReply, "=== NEXT ACTIONS ===\nEscalate."}

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Input: structuringInput()})

	require.NoError(t, err)
	assert.Empty(t, res.Analysis.Facts)
	assert.Empty(t, f.prompts.facts)
	assert.Equal(t, "Escalate.", res.Analysis.NextActions)
	assert.Empty(t, res.Analysis.EvidenceMap)
}

func TestAnalyze_OptionalDependencies(t *testing.T) {
	f := newFixture()
	f.svc.Audit, f.svc.Archive, f.svc.Metrics, f.svc.Log, f.svc.Clock = nil, nil, nil, nil, nil

	res, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Input: structuringInput()})

	require.NoError(t, err)
	assert.Empty(t, res.ArchiveURL)
}

func TestApprove_AuditsAndLearns(t *testing.T) {
	f := newFixture()

	err := f.svc.Approve(context.Background(), ApproveCommand{
		TenantID:  "acme",
		CaseID:    "SAR-5",
		ActorID:   "supervisor",
		Narrative: "Approved narrative text.",
		Typology:  "structuring",
		RiskLevel: "high",
		Comments:  "looks right",
	})

	require.NoError(t, err)
	require.Len(t, f.audit.events, 1)
	ev := f.audit.events[0]
	assert.Equal(t, audit.EventSARApproval, ev.EventType)
	assert.Equal(t, audit.ActionApproved, ev.Action)
	assert.Equal(t, "SAR-5", ev.SubjectID)
	assert.Equal(t, "looks right", ev.Details["comments"])

	assert.Equal(t, "Approved narrative text.", f.knowledge.learned["SAR-5"])
	assert.Equal(t, map[string]string{"case_id": "SAR-5", "typology": "structuring", "risk_level": "high", "tenant": "acme"}, f.knowledge.meta)
}

func TestApprove_RejectsIncompleteCommand(t *testing.T) {
	f := newFixture()

	err := f.svc.Approve(context.Background(), ApproveCommand{Narrative: "x"})
	assert.ErrorIs(t, err, cases.ErrInvalidInput)

	err = f.svc.Approve(context.Background(), ApproveCommand{CaseID: "SAR-6", Narrative: "  "})
	assert.ErrorIs(t, err, cases.ErrInvalidInput)

	assert.Empty(t, f.audit.events)
	assert.Empty(t, f.knowledge.learned)
}
