package main

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	citationURLPattern = regexp.MustCompile(`https?://[^\s)\]">]+`)
	numericPattern     = regexp.MustCompile(`\d[\d,.]*\d|\d`)
)

// Polish rewrites the draft for the fixed house voice without changing
// claims. Every citation URL and numeric token in the draft must survive the
// rewrite byte-for-byte; mismatches are flagged, never silently accepted.
func (p *Pipeline) Polish(record *PostRecord) (string, []string, error) {
	structure := record.Structure

	userPrompt, err := renderPrompt(p.config.GetPrompt("polish-user"), map[string]string{
		"content_type":  string(structure.ContentType),
		"author_voice":  structure.AuthorVoice,
		"draft_content": record.Draft,
	})
	if err != nil {
		return "", nil, fmt.Errorf("rendering polish prompt: %w", err)
	}

	polished, err := p.llm.Complete(
		p.config.GetPrompt("polish-system"),
		userPrompt,
		p.config.Settings.Stages.Polish.options(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("polishing draft: %w", err)
	}

	flags := verifyIntegrity(record.Draft, polished)
	return polished, flags, nil
}

// verifyIntegrity reports every citation URL and numeric token present in
// the draft but absent from the polished version. The style pass must not
// drop evidence; this is a correctness property, not a style preference.
func verifyIntegrity(draft, polished string) []string {
	var flags []string

	for _, url := range dedupe(citationURLPattern.FindAllString(draft, -1)) {
		if !strings.Contains(polished, url) {
			flags = append(flags, fmt.Sprintf("citation URL missing after polish: %s", url))
		}
	}

	for _, num := range dedupe(numericPattern.FindAllString(draft, -1)) {
		if !strings.Contains(polished, num) {
			flags = append(flags, fmt.Sprintf("numeric token missing after polish: %s", num))
		}
	}

	return flags
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
