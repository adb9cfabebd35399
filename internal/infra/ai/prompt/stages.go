package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-sar/internal/domain/analysis"
)

// plainText is repeated in every stage; models drift back to markdown otherwise.
const plainText = `FORMATTING RULES:
- Plain professional text only. No asterisks, no markdown (no **, *, _ or #).
- Bullets may use "•" or "-".
- Keep every section header exactly as shown, on its own line.`

// GetSystemPrompt frames every generation call.
func GetSystemPrompt() string {
	return `You are a senior AML compliance analyst preparing Suspicious Activity Report material for human review.
You state verifiable facts, cite exact amounts and dates from the case, avoid speculation, and describe behaviour rather than demographics.
Your output is parsed by section headers of the form "=== NAME ===", so you always reproduce the requested headers verbatim.`
}

// Stages builds the three stage prompts of the analysis pipeline.
type Stages struct{}

// CombinedAnalysis asks for facts, red flags, typology, confidence, timeline
// and reasoning from the case text alone.
func (Stages) CombinedAnalysis(caseText string) string {
	var b strings.Builder
	b.WriteString(`Analyse the suspicious activity case below.

INSTRUCTIONS:
- Quote exact figures, dates and counterparties from the case. Do not round or paraphrase amounts.
- Report objective facts only; mark gaps instead of guessing.
- Base red flags on FinCEN guidance.
`)
	b.WriteString(plainText)
	b.WriteString(`

WHAT TO PRODUCE:
1. FACTS: customer identification, transaction specifics (dates, amounts, counterparties), behavioural patterns, geographic factors.
2. RED FLAGS: amounts near the $10,000 reporting threshold, fast movement of funds, activity that does not fit the profile, high-risk jurisdictions or counterparties, no economic purpose.
3. TYPOLOGY: name one typology (for example Structuring, Layering, Trade-Based ML, Funnel Account, Smurfing), explain the match and cite the transactions that show it.
4. CONFIDENCE: a percentage from 0 to 100 with the evidence behind it and any uncertainty.
5. TIMELINE: events in date order showing how the activity developed.
6. REASONING: the steps from facts to typology, and why the activity is suspicious rather than merely unusual.

FORMAT EXACTLY LIKE THIS:

`)
	writeSkeleton(&b, []skeleton{
		{analysis.SectionFacts, "• [fact with exact amount and date]"},
		{analysis.SectionRedFlags, "• [indicator and its regulatory basis]"},
		{analysis.SectionTypology, "[typology name]: [explanation citing transactions]"},
		{analysis.SectionConfidence, "[NN%]: [why]"},
		{analysis.SectionTimeline, "[date]: [event]"},
		{analysis.SectionReasoning, "[numbered analytical steps]"},
	})
	fmt.Fprintf(&b, "\nCASE:\n%s", caseText)
	return b.String()
}

// NarrativeSynthesis asks for the SAR narrative with its quality review,
// grounded on retrieved reference text and the stage-one findings.
func (Stages) NarrativeSynthesis(reference string, combined analysis.StageResult, caseText string) string {
	var b strings.Builder
	b.WriteString(`Write a regulator-ready SAR package for the case below.
`)
	b.WriteString(plainText)
	b.WriteString(`
- Use ✅ and ❌ only inside the quality check.

REFERENCE MATERIAL:
`)
	b.WriteString(reference)
	fmt.Fprintf(&b, `

PRIOR ANALYSIS:
Facts: %s
Red flags: %s
Typology: %s

CASE:
%s

NARRATIVE REQUIREMENTS:
- Follow the FinCEN narrative order: subject, activity, transaction pattern, why it is suspicious, supporting evidence.
- Professional, objective and evidence-backed. Specific dates and amounts. No speculation.
- Between 1000 and 2000 characters.
- Name the typology and say why the activity warrants a filing.
- Describe behaviour, never demographics.

ALSO PRODUCE:
- QUALITY CHECK: mark each item ✅ or ❌: clear subject description, logical flow, every statement backed by evidence, FinCEN structure, regulatory language, no speculation or bias, dates and amounts present.
- REGULATORY HIGHLIGHTS: the red flags, evidence and typology justification an examiner should read first.
- EXECUTIVE SUMMARY: five lines covering who, what, why suspicious, risk level, recommended action.

FORMAT EXACTLY LIKE THIS:

`, combined.Get(analysis.SectionFacts), combined.Get(analysis.SectionRedFlags), combined.Get(analysis.SectionTypology), caseText)
	writeSkeleton(&b, []skeleton{
		{analysis.SectionNarrative, "[complete narrative, plain text]"},
		{analysis.SectionQualityCheck, "✅/❌ [checklist item]"},
		{analysis.SectionRegulatory, "• [key point]"},
		{analysis.SectionExecutive, "[five lines]"},
	})
	return b.String()
}

// PostAnalysis reviews a finished narrative against the extracted facts.
func (Stages) PostAnalysis(narrative, facts string) string {
	var b strings.Builder
	b.WriteString(`Review the SAR narrative against the facts it was written from.
`)
	b.WriteString(plainText)
	fmt.Fprintf(&b, `

PRODUCE:
1. EVIDENCE MAP: each key narrative sentence and the fact that supports it.
2. CONTRADICTIONS: inconsistencies between narrative and facts, or "No contradictions found".
3. PII CHECK: personal information the narrative exposes without need, and how to reduce it.
4. NEXT ACTIONS: three to five follow-ups such as monitoring, enhanced due diligence or further investigation.
5. IMPROVEMENTS: two or three concrete ways to strengthen the narrative.

SAR NARRATIVE:
%s

FACTS:
%s

FORMAT EXACTLY LIKE THIS:

`, narrative, facts)
	writeSkeleton(&b, []skeleton{
		{analysis.SectionEvidenceMap, "[sentence] → [fact]"},
		{analysis.SectionContradict, "[list, or No contradictions found]"},
		{analysis.SectionPIICheck, "[assessment]"},
		{analysis.SectionNextActions, "• [action]"},
		{analysis.SectionImprovements, "• [suggestion]"},
	})
	return b.String()
}

type skeleton struct {
	section     string
	placeholder string
}

func writeSkeleton(b *strings.Builder, parts []skeleton) {
	for i, p := range parts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(analysis.Header(p.section))
		b.WriteString("\n")
		b.WriteString(p.placeholder)
		b.WriteString("\n")
	}
}
