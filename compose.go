package main

import (
	"fmt"
	"strings"
)

const (
	leadMinWords   = 30
	leadMaxWords   = 50
	leadWordWindow = 60
)

// Compose writes the full inverted-pyramid draft: a short lead stating the
// single most important fact, then supporting paragraphs in descending order
// of importance, citations inlined.
func (p *Pipeline) Compose(record *PostRecord) (string, error) {
	structure := record.Structure

	outlineLines := make([]string, 0, len(structure.Outline))
	for i, section := range structure.Outline {
		outlineLines = append(outlineLines, fmt.Sprintf("%d. %s\n   Purpose: %s\n   Points: %s",
			i+1, section.Title, section.Purpose, strings.Join(section.KeyPoints, ", ")))
	}

	preserveText := "No specific elements flagged"
	if len(structure.PreserveElements) > 0 {
		items := make([]string, len(structure.PreserveElements))
		for i, elem := range structure.PreserveElements {
			items[i] = "- " + elem
		}
		preserveText = strings.Join(items, "\n")
	}

	userPrompt, err := renderPrompt(p.config.GetPrompt("compose-user"), map[string]string{
		"content_type":      string(structure.ContentType),
		"author_voice":      structure.AuthorVoice,
		"guidance":          structure.Guidance,
		"thesis":            structure.ThesisOrInsight(),
		"preserve_elements": preserveText,
		"outline":           strings.Join(outlineLines, "\n"),
		"evidence":          formatEvidence(record.Research),
		"original_draft":    record.RawNote,
	})
	if err != nil {
		return "", fmt.Errorf("rendering compose prompt: %w", err)
	}

	draft, err := p.llm.Complete(
		p.config.GetPrompt("compose-system"),
		userPrompt,
		p.config.Settings.Stages.Compose.options(),
	)
	if err != nil {
		return "", fmt.Errorf("composing draft: %w", err)
	}

	if err := validateLead(draft); err != nil {
		return "", err
	}

	return draft, nil
}

// formatEvidence renders research findings as prompt input. Empty findings
// tell the writer to lean on the author's experience instead of inventing
// support.
func formatEvidence(findings *ResearchFindings) string {
	if findings == nil || (!findings.HasExternalEvidence && len(findings.Evidence) == 0) {
		return "Author's experience is the primary evidence. Do not add external statistics."
	}

	var lines []string
	for _, e := range findings.Evidence {
		line := fmt.Sprintf("- %s (Source: %s)", e.Claim, e.Source)
		if e.Metric != "" {
			line += fmt.Sprintf(" [metric: %s]", e.Metric)
		}
		lines = append(lines, line)
	}
	for _, cs := range findings.CaseStudies {
		lines = append(lines, fmt.Sprintf("- %s: %s -> %s (Source: %s)",
			cs.Company, cs.Example, cs.Result, cs.Source))
	}
	if len(lines) == 0 {
		return "No external evidence - rely on author's experience"
	}
	return strings.Join(lines, "\n")
}

// validateLead enforces the composition contract: a lead paragraph must
// appear within the first 60 words of body text. Lead length outside the
// 30-50 word target is tolerated with a debug note; a missing lead is a
// hard stage failure.
func validateLead(draft string) error {
	lead, wordsBefore := firstParagraph(draft)
	if lead == "" {
		return fmt.Errorf("%w: no lead paragraph found", ErrCompositionIncomplete)
	}
	if wordsBefore > leadWordWindow {
		return fmt.Errorf("%w: no lead paragraph found in the first %d words", ErrCompositionIncomplete, leadWordWindow)
	}

	words := len(strings.Fields(lead))
	if words < leadMinWords || words > leadMaxWords {
		debugLog("lead paragraph is %d words, target %d-%d", words, leadMinWords, leadMaxWords)
	}
	return nil
}

// firstParagraph returns the first non-heading paragraph of a markdown
// document and the number of words preceding it.
func firstParagraph(doc string) (string, int) {
	wordsBefore := 0
	for _, block := range strings.Split(doc, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if strings.HasPrefix(block, "#") {
			wordsBefore += len(strings.Fields(block))
			continue
		}
		return block, wordsBefore
	}
	return "", wordsBefore
}
