package analysis

import (
	"github.com/bryanwahyu/automaton-sar/internal/domain/risk"
)

// Stage names the three generation calls, in execution order.
type Stage string

const (
	StageCombined  Stage = "combined_analysis"
	StageNarrative Stage = "narrative_synthesis"
	StagePost      Stage = "post_analysis"
)

// Sections each stage must produce.
var (
	CombinedSections  = []string{SectionFacts, SectionRedFlags, SectionTypology, SectionConfidence, SectionTimeline, SectionReasoning}
	NarrativeSections = []string{SectionNarrative, SectionQualityCheck, SectionRegulatory, SectionExecutive}
	PostSections      = []string{SectionEvidenceMap, SectionContradict, SectionPIICheck, SectionNextActions, SectionImprovements}
)

// StageOutput keeps a stage's raw generation text next to what was parsed from it.
type StageOutput struct {
	Stage    Stage       `json:"stage"`
	Raw      string      `json:"raw"`
	Sections StageResult `json:"sections"`
}

// Comprehensive is the merged analysis handed to persistence and export.
type Comprehensive struct {
	Facts                string          `json:"facts"`
	RedFlags             string          `json:"red_flags"`
	Typology             string          `json:"typology"`
	TypologyConfidence   string          `json:"typology_confidence"`
	Timeline             string          `json:"timeline"`
	ReasoningTrace       string          `json:"reasoning_trace"`
	Narrative            string          `json:"narrative"`
	QualityCheck         string          `json:"quality_check"`
	RegulatoryHighlights string          `json:"regulatory_highlights"`
	ExecutiveSummary     string          `json:"executive_summary"`
	EvidenceMap          string          `json:"evidence_map"`
	Contradictions       string          `json:"contradictions"`
	PIICheck             string          `json:"pii_check"`
	NextActions          string          `json:"next_actions"`
	Improvements         string          `json:"improvements"`
	RiskAnalysis         risk.Assessment `json:"risk_analysis"`
	Model                string          `json:"llm_model"`
	Temperature          float32         `json:"temperature"`
}

// Merge flattens the three stage results into one record.
func Merge(combined, narrative, post StageResult, assessment risk.Assessment, model string, temperature float32) Comprehensive {
	return Comprehensive{
		Facts:                combined.Get(SectionFacts),
		RedFlags:             combined.Get(SectionRedFlags),
		Typology:             combined.Get(SectionTypology),
		TypologyConfidence:   combined.Get(SectionConfidence),
		Timeline:             combined.Get(SectionTimeline),
		ReasoningTrace:       combined.Get(SectionReasoning),
		Narrative:            narrative.Get(SectionNarrative),
		QualityCheck:         narrative.Get(SectionQualityCheck),
		RegulatoryHighlights: narrative.Get(SectionRegulatory),
		ExecutiveSummary:     narrative.Get(SectionExecutive),
		EvidenceMap:          post.Get(SectionEvidenceMap),
		Contradictions:       post.Get(SectionContradict),
		PIICheck:             post.Get(SectionPIICheck),
		NextActions:          post.Get(SectionNextActions),
		Improvements:         post.Get(SectionImprovements),
		RiskAnalysis:         assessment,
		Model:                model,
		Temperature:          temperature,
	}
}
