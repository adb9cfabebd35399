package analysis

import "strings"

// sectionMarker delimits sections in generation output: "=== NAME ===".
const sectionMarker = "==="

// Section names produced by the three generation stages.
const (
	SectionFacts        = "FACTS"
	SectionRedFlags     = "RED FLAGS"
	SectionTypology     = "TYPOLOGY"
	SectionConfidence   = "CONFIDENCE"
	SectionTimeline     = "TIMELINE"
	SectionReasoning    = "REASONING"
	SectionNarrative    = "SAR NARRATIVE"
	SectionQualityCheck = "QUALITY CHECK"
	SectionRegulatory   = "REGULATORY HIGHLIGHTS"
	SectionExecutive    = "EXECUTIVE SUMMARY"
	SectionEvidenceMap  = "EVIDENCE MAP"
	SectionContradict   = "CONTRADICTIONS"
	SectionPIICheck     = "PII CHECK"
	SectionNextActions  = "NEXT ACTIONS"
	SectionImprovements = "IMPROVEMENTS"
)

// StageResult maps a section name to its extracted text ("" when absent).
type StageResult map[string]string

// Get returns the section text, matching the name case-insensitively.
func (r StageResult) Get(name string) string {
	if v, ok := r[name]; ok {
		return v
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Header renders the marker line for a section name.
func Header(name string) string {
	return sectionMarker + " " + name + " " + sectionMarker
}

// ExtractSection returns the trimmed body of the first "=== name ===" block in
// text, ending at the next "===" or at end of text. A missing header yields "".
func ExtractSection(text, name string) string {
	marker := Header(name)
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	body := text[idx+len(marker):]
	if next := strings.Index(body, sectionMarker); next >= 0 {
		body = body[:next]
	}
	return strings.TrimSpace(body)
}

// ExtractSections extracts every named section from one generation output.
func ExtractSections(text string, names ...string) StageResult {
	out := make(StageResult, len(names))
	for _, n := range names {
		out[n] = ExtractSection(text, n)
	}
	return out
}
