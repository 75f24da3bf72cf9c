package main

import (
	"errors"
	"strings"
	"testing"
)

func TestStructureNote(t *testing.T) {
	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		if !strings.Contains(user, "raw note text here") {
			t.Error("user prompt should contain the raw note")
		}
		return personalStructureJSON, nil
	}}
	p := newTestPipeline(t, llm)

	structure, err := p.StructureNote("raw note text here")
	if err != nil {
		t.Fatalf("StructureNote: %v", err)
	}
	if structure.ContentType != ContentPersonalInsight {
		t.Errorf("content type = %s", structure.ContentType)
	}
	if len(structure.Outline) != 2 {
		t.Errorf("outline sections = %d, want 2", len(structure.Outline))
	}
	if structure.Answers.Who == "" {
		t.Error("answers not populated")
	}
}

func TestStructureNoteEmptyNote(t *testing.T) {
	p := newTestPipeline(t, &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		t.Error("model should not be called for an empty note")
		return "", nil
	}})

	if _, err := p.StructureNote("   \n  "); err == nil {
		t.Error("expected error for empty note")
	}
}

func TestStructureNoteMalformedOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I think this note is about deployments."},
		{"unknown content type", `{"content_type": "poetry", "thesis": "x", "outline": [{"section_title": "A"}]}`},
		{"missing thesis and insight", `{"content_type": "technical_howto", "outline": [{"section_title": "A"}]}`},
		{"empty outline", `{"content_type": "technical_howto", "thesis": "x", "outline": []}`},
		{"untitled section", `{"content_type": "technical_howto", "thesis": "x", "outline": [{"section_title": "  "}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
				return tt.response, nil
			}}
			p := newTestPipeline(t, llm)

			_, err := p.StructureNote("a note")
			if !errors.Is(err, ErrMalformedModelOutput) {
				t.Errorf("err = %v, want ErrMalformedModelOutput", err)
			}
		})
	}
}

func TestStructureNoteAcceptsCodeFencedJSON(t *testing.T) {
	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		return "```json\n" + personalStructureJSON + "\n```", nil
	}}
	p := newTestPipeline(t, llm)

	if _, err := p.StructureNote("a note"); err != nil {
		t.Fatalf("StructureNote: %v", err)
	}
}

func TestNeedsResearch(t *testing.T) {
	tests := []struct {
		contentType ContentType
		want        bool
	}{
		{ContentPersonalInsight, false},
		{ContentTechnicalHowto, true},
		{ContentBusinessCase, true},
		{ContentThoughtLeadership, true},
		{ContentHybrid, true},
	}

	for _, tt := range tests {
		if got := tt.contentType.NeedsResearch(); got != tt.want {
			t.Errorf("%s.NeedsResearch() = %t, want %t", tt.contentType, got, tt.want)
		}
	}
}

func TestThesisOrInsight(t *testing.T) {
	s := &Structure{Thesis: "the thesis", CoreInsight: "the insight"}
	if got := s.ThesisOrInsight(); got != "the thesis" {
		t.Errorf("got %q", got)
	}

	s.Thesis = "  "
	if got := s.ThesisOrInsight(); got != "the insight" {
		t.Errorf("got %q", got)
	}
}
