package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-sar/internal/application"
	"github.com/bryanwahyu/automaton-sar/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-sar/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/bryanwahyu/automaton-sar/internal/domain/risk"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Prompter renders the prompt of each generation stage.
type Prompter interface {
	CombinedAnalysis(caseText string) string
	NarrativeSynthesis(reference string, combined domain.StageResult, caseText string) string
	PostAnalysis(narrative, facts string) string
}

// Knowledge is the retrieval side the pipeline reads from and teaches.
type Knowledge interface {
	Retrieve(ctx context.Context, query string, k int) string
	LearnApproved(ctx context.Context, caseID, narrative string, metadata map[string]string)
}

type Auditor interface {
	Record(ctx context.Context, e *audit.Event)
}

// Archive stores raw stage outputs for later review. Optional.
type Archive interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

type Metrics interface {
	ObserveStage(stage string, d time.Duration, err error)
	AnalysisFinished(outcome, riskLevel string)
}

// Service runs the three-stage narrative pipeline next to the risk scorer.
// It holds no per-case state and is safe for concurrent use.
type Service struct {
	AI          ai.Client
	Knowledge   Knowledge
	Prompts     Prompter
	Audit       Auditor
	Archive     Archive
	Metrics     Metrics
	Clock       application.Clock
	Log         *zap.Logger
	Model       string
	Temperature float32
	RetrievalK  int
}

//
// ==== USE CASES ====
//

type AnalyzeCommand struct {
	TenantID string
	CaseID   cases.CaseID
	ActorID  string
	Input    cases.Input
}

type AnalyzeResult struct {
	RunID      string               `json:"run_id"`
	CaseID     cases.CaseID         `json:"case_id"`
	Narrative  string               `json:"narrative"`
	Analysis   domain.Comprehensive `json:"analysis"`
	Trace      domain.Trace         `json:"reasoning_trace"`
	ArchiveURL string               `json:"archive_url,omitempty"`
	Stages     []domain.StageOutput `json:"-"`
	DurationMS int64                `json:"duration_ms"`
}

// Analyze builds the case context, runs the three generation stages in order
// and scores risk concurrently. Any generation failure aborts the run and
// nothing from completed stages is returned.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*AnalyzeResult, error) {
	start := s.now()
	caseID := cmd.CaseID
	if caseID == "" {
		caseID = cases.NewCaseID()
	}
	runID := uuid.NewString()
	log := s.logger().With(zap.String("tenant", cmd.TenantID), zap.String("case_id", string(caseID)), zap.String("run_id", runID))

	caseText := cases.BuildContext(cmd.Input)

	var (
		assessment risk.Assessment
		stages     []domain.StageOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		assessment = risk.Score(cmd.Input)
		return nil
	})
	g.Go(func() error {
		out, err := s.runStages(gctx, log, caseText)
		if err != nil {
			return err
		}
		stages = out
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("analysis failed", zap.Error(err))
		if s.Metrics != nil {
			s.Metrics.AnalysisFinished("failed", "")
		}
		return nil, err
	}

	combined, narrative, post := stages[0].Sections, stages[1].Sections, stages[2].Sections
	result := &AnalyzeResult{
		RunID:     runID,
		CaseID:    caseID,
		Narrative: narrative.Get(domain.SectionNarrative),
		Analysis:  domain.Merge(combined, narrative, post, assessment, s.Model, s.Temperature),
		Trace:     domain.BuildTrace(cmd.Input),
		Stages:    stages,
	}
	if missing := missingSections(stages); len(missing) > 0 {
		log.Warn("generation output missing sections", zap.Strings("sections", missing))
	}

	if s.Archive != nil {
		key := fmt.Sprintf("%s/analyses/%s/%s.json", tenantOrDefault(cmd.TenantID), caseID, runID)
		url, err := s.Archive.PutJSON(ctx, key, archiveRecord{RunID: runID, CaseID: caseID, Stages: stages, Analysis: result.Analysis})
		if err != nil {
			log.Warn("archive stage outputs", zap.Error(err))
		} else {
			result.ArchiveURL = url
		}
	}

	result.DurationMS = s.now().Sub(start).Milliseconds()
	s.recordGeneration(ctx, cmd, result)
	if s.Metrics != nil {
		s.Metrics.AnalysisFinished("completed", string(assessment.Level))
	}
	log.Info("analysis completed",
		zap.Int("risk_score", assessment.Score),
		zap.String("risk_level", string(assessment.Level)),
		zap.Int64("duration_ms", result.DurationMS))
	return result, nil
}

func (s *Service) runStages(ctx context.Context, log *zap.Logger, caseText string) ([]domain.StageOutput, error) {
	combined, err := s.runStage(ctx, log, domain.StageCombined, s.Prompts.CombinedAnalysis(caseText), domain.CombinedSections)
	if err != nil {
		return nil, err
	}

	reference := s.Knowledge.Retrieve(ctx, caseText, s.RetrievalK)
	narrative, err := s.runStage(ctx, log, domain.StageNarrative,
		s.Prompts.NarrativeSynthesis(reference, combined.Sections, caseText), domain.NarrativeSections)
	if err != nil {
		return nil, err
	}

	post, err := s.runStage(ctx, log, domain.StagePost,
		s.Prompts.PostAnalysis(narrative.Sections.Get(domain.SectionNarrative), combined.Sections.Get(domain.SectionFacts)),
		domain.PostSections)
	if err != nil {
		return nil, err
	}
	return []domain.StageOutput{combined, narrative, post}, nil
}

func (s *Service) runStage(ctx context.Context, log *zap.Logger, stage domain.Stage, prompt string, sections []string) (domain.StageOutput, error) {
	start := s.now()
	raw, err := s.AI.Generate(ctx, prompt)
	if s.Metrics != nil {
		s.Metrics.ObserveStage(string(stage), s.now().Sub(start), err)
	}
	if err != nil {
		return domain.StageOutput{}, fmt.Errorf("%w: stage %s: %w", ai.ErrGeneration, stage, err)
	}
	log.Debug("stage completed", zap.String("stage", string(stage)), zap.Int("chars", len(raw)))
	return domain.StageOutput{Stage: stage, Raw: raw, Sections: domain.ExtractSections(raw, sections...)}, nil
}

func (s *Service) recordGeneration(ctx context.Context, cmd AnalyzeCommand, r *AnalyzeResult) {
	if s.Audit == nil {
		return
	}
	details := map[string]any{
		"run_id":          r.RunID,
		"llm_model":       s.Model,
		"temperature":     s.Temperature,
		"risk_score":      r.Analysis.RiskAnalysis.Score,
		"risk_level":      r.Analysis.RiskAnalysis.Level,
		"typology":        r.Analysis.Typology,
		"reasoning_trace": r.Trace,
		"duration_ms":     r.DurationMS,
	}
	if r.ArchiveURL != "" {
		details["archive_url"] = r.ArchiveURL
	}
	s.Audit.Record(ctx, &audit.Event{
		TenantID:  cmd.TenantID,
		EventType: audit.EventSARGeneration,
		ActorID:   cmd.ActorID,
		SubjectID: string(r.CaseID),
		Action:    audit.ActionGenerateNarrative,
		Details:   details,
	})
}

type ApproveCommand struct {
	TenantID  string
	CaseID    cases.CaseID
	ActorID   string
	Narrative string
	Typology  string
	RiskLevel string
	Comments  string
}

// Approve records the approval and feeds the narrative back into the
// knowledge store. Learning is best effort; approval succeeds without it.
func (s *Service) Approve(ctx context.Context, cmd ApproveCommand) error {
	if cmd.CaseID == "" {
		return fmt.Errorf("%w: case id is required", cases.ErrInvalidInput)
	}
	if strings.TrimSpace(cmd.Narrative) == "" {
		return fmt.Errorf("%w: narrative is required", cases.ErrInvalidInput)
	}

	if s.Audit != nil {
		s.Audit.Record(ctx, &audit.Event{
			TenantID:  cmd.TenantID,
			EventType: audit.EventSARApproval,
			ActorID:   cmd.ActorID,
			SubjectID: string(cmd.CaseID),
			Action:    audit.ActionApproved,
			Details: map[string]any{
				"comments":   cmd.Comments,
				"typology":   cmd.Typology,
				"risk_level": cmd.RiskLevel,
			},
		})
	}

	meta := map[string]string{"case_id": string(cmd.CaseID)}
	if cmd.Typology != "" {
		meta["typology"] = cmd.Typology
	}
	if cmd.RiskLevel != "" {
		meta["risk_level"] = cmd.RiskLevel
	}
	if cmd.TenantID != "" {
		meta["tenant"] = cmd.TenantID
	}
	s.Knowledge.LearnApproved(ctx, string(cmd.CaseID), cmd.Narrative, meta)
	s.logger().Info("analysis approved", zap.String("case_id", string(cmd.CaseID)), zap.String("actor", cmd.ActorID))
	return nil
}

// IsGenerationError reports whether err came from a failed generation call.
func IsGenerationError(err error) bool { return errors.Is(err, ai.ErrGeneration) }

type archiveRecord struct {
	RunID    string               `json:"run_id"`
	CaseID   cases.CaseID         `json:"case_id"`
	Stages   []domain.StageOutput `json:"stages"`
	Analysis domain.Comprehensive `json:"analysis"`
}

func missingSections(stages []domain.StageOutput) []string {
	var out []string
	for _, st := range stages {
		for name, text := range st.Sections {
			if text == "" {
				out = append(out, string(st.Stage)+"/"+name)
			}
		}
	}
	return out
}

func tenantOrDefault(t string) string {
	if t == "" {
		return "default"
	}
	return t
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
