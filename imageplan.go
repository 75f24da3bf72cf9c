package main

import (
	"fmt"
	"log"
	"strings"
)

// PlanImages derives an image plan from the finished post: one hero prompt
// for the whole post plus at most one diagram per H2 heading. Only runs when
// image generation is configured.
func (p *Pipeline) PlanImages(record *PostRecord) (*ImagePlan, error) {
	headings := extractHeadings(record.Post)

	sectionsText := "No H2 sections found"
	if len(headings) > 0 {
		items := make([]string, len(headings))
		for i, h := range headings {
			items[i] = "- " + h
		}
		sectionsText = strings.Join(items, "\n")
	}

	userPrompt, err := renderPrompt(p.config.GetPrompt("image-plan-user"), map[string]string{
		"content_type": string(record.Structure.ContentType),
		"core_insight": record.Structure.CoreInsight,
		"sections":     sectionsText,
		"blog_content": record.Post,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering image plan prompt: %w", err)
	}

	var plan ImagePlan
	err = p.llm.CompleteJSON(
		p.config.GetPrompt("image-plan-system"),
		userPrompt,
		p.config.GetSchema("image-plan"),
		p.config.Settings.Stages.ImagePlan.options(),
		&plan,
	)
	if err != nil {
		return nil, fmt.Errorf("planning images: %w", err)
	}

	if strings.TrimSpace(plan.Hero.Prompt) == "" {
		return nil, fmt.Errorf("%w: image plan has no hero prompt", ErrMalformedModelOutput)
	}

	plan.Diagrams = dedupeDiagrams(plan.Diagrams)
	return &plan, nil
}

// dedupeDiagrams enforces the one-diagram-per-heading rule: the first
// diagram for a heading wins, later ones are dropped. Diagrams without a
// prompt are dropped too.
func dedupeDiagrams(diagrams []DiagramSpec) []DiagramSpec {
	seen := make(map[string]bool, len(diagrams))
	kept := make([]DiagramSpec, 0, len(diagrams))
	for _, d := range diagrams {
		if strings.TrimSpace(d.Prompt) == "" || strings.TrimSpace(d.ImageID) == "" {
			continue
		}
		if seen[d.TargetSection] {
			log.Printf("  ⚠ Dropping duplicate diagram for section %q", d.TargetSection)
			continue
		}
		seen[d.TargetSection] = true
		kept = append(kept, d)
	}
	return kept
}

// extractHeadings returns the H2 heading texts of a markdown document, in
// order.
func extractHeadings(doc string) []string {
	var headings []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimSpace(line[3:]))
		}
	}
	return headings
}
