package prompt

import (
	"strings"
	"testing"

	"github.com/bryanwahyu/automaton-sar/internal/domain/analysis"
	"github.com/stretchr/testify/assert"
)

func assertHeaders(t *testing.T, p string, sections []string) {
	t.Helper()
	last := -1
	for _, s := range sections {
		idx := strings.Index(p, analysis.Header(s))
		if assert.GreaterOrEqual(t, idx, 0, "missing header %s", s) {
			assert.Greater(t, idx, last, "header %s out of order", s)
			last = idx
		}
	}
}

func TestCombinedAnalysis(t *testing.T) {
	p := Stages{}.CombinedAnalysis("CUSTOMER INFORMATION:\n{}")

	assertHeaders(t, p, analysis.CombinedSections)
	assert.True(t, strings.HasSuffix(p, "CUSTOMER INFORMATION:\n{}"))
	for _, typ := range []string{"Structuring", "Layering", "Trade-Based ML", "Funnel Account", "Smurfing"} {
		assert.Contains(t, p, typ)
	}
}

func TestNarrativeSynthesis(t *testing.T) {
	combined := analysis.StageResult{
		analysis.SectionFacts:    "8 deposits",
		analysis.SectionRedFlags: "near threshold",
		analysis.SectionTypology: "Structuring",
	}

	p := Stages{}.NarrativeSynthesis("TEMPLATE TEXT", combined, "CASE TEXT")

	assertHeaders(t, p, analysis.NarrativeSections)
	assert.Contains(t, p, "TEMPLATE TEXT")
	assert.Contains(t, p, "Facts: 8 deposits")
	assert.Contains(t, p, "Red flags: near threshold")
	assert.Contains(t, p, "Typology: Structuring")
	assert.Contains(t, p, "CASE TEXT")
}

func TestPostAnalysis(t *testing.T) {
	p := Stages{}.PostAnalysis("THE NARRATIVE", "THE FACTS")

	assertHeaders(t, p, analysis.PostSections)
	assert.Contains(t, p, "SAR NARRATIVE:\nTHE NARRATIVE")
	assert.Contains(t, p, "FACTS:\nTHE FACTS")
}

func TestSkeletonRoundTripsThroughExtraction(t *testing.T) {
	// A model that echoes the skeleton must still parse into every section.
	p := Stages{}.PostAnalysis("n", "f")
	echo := p[strings.Index(p, analysis.Header(analysis.SectionEvidenceMap)):]

	got := analysis.ExtractSections(echo, analysis.PostSections...)

	for _, s := range analysis.PostSections {
		assert.NotEmpty(t, got[s], s)
	}
}
