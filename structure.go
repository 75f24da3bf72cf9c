package main

import (
	"fmt"
	"strings"
)

// StructureNote turns a raw note into a Structure via one schema-constrained
// model call. Very short notes degrade quality but are not rejected; only an
// empty note is a hard failure.
func (p *Pipeline) StructureNote(rawNote string) (*Structure, error) {
	if strings.TrimSpace(rawNote) == "" {
		return nil, fmt.Errorf("note is empty")
	}

	userPrompt, err := renderPrompt(p.config.GetPrompt("structure-user"), map[string]string{
		"draft_content": rawNote,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering structure prompt: %w", err)
	}

	var structure Structure
	err = p.llm.CompleteJSON(
		p.config.GetPrompt("structure-system"),
		userPrompt,
		p.config.GetSchema("structure"),
		p.config.Settings.Stages.Structure.options(),
		&structure,
	)
	if err != nil {
		return nil, fmt.Errorf("structuring note: %w", err)
	}

	if err := validateStructure(&structure); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	return &structure, nil
}

// validateStructure checks the declared shape before the record is handed to
// the next stage. A malformed output is a hard stage failure, not silently
// coerced.
func validateStructure(s *Structure) error {
	switch s.ContentType {
	case ContentPersonalInsight, ContentTechnicalHowto, ContentBusinessCase,
		ContentThoughtLeadership, ContentHybrid:
	default:
		return fmt.Errorf("unknown content type %q", s.ContentType)
	}

	if strings.TrimSpace(s.Thesis) == "" && strings.TrimSpace(s.CoreInsight) == "" {
		return fmt.Errorf("missing thesis")
	}

	if len(s.Outline) == 0 {
		return fmt.Errorf("empty outline")
	}
	for i, section := range s.Outline {
		if strings.TrimSpace(section.Title) == "" {
			return fmt.Errorf("outline section %d has no title", i+1)
		}
	}

	return nil
}

// ThesisOrInsight returns the thesis, falling back to the core insight.
func (s *Structure) ThesisOrInsight() string {
	if strings.TrimSpace(s.Thesis) != "" {
		return s.Thesis
	}
	return s.CoreInsight
}
