package main

import (
	"errors"
	"strings"
	"testing"
)

const imagePlanJSON = `{
	"hero": {"description": "abstract pipeline", "prompt": "a minimalist abstract rendering of a deployment pipeline"},
	"diagrams": [
		{"image_id": "diagram-1", "target_section": "Where the Time Went", "diagram_type": "flowchart", "alt_text": "Pipeline timing breakdown", "caption": "Where the 40 minutes went", "prompt": "clean flowchart of a build pipeline"},
		{"image_id": "diagram-2", "target_section": "What We Changed", "diagram_type": "architecture", "alt_text": "", "caption": "", "prompt": "diagram of parallel test runners"}
	]
}`

func TestPlanImages(t *testing.T) {
	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		if !strings.Contains(user, "- Where the Time Went") {
			t.Error("image plan prompt should list the H2 sections")
		}
		return imagePlanJSON, nil
	}}
	p := newTestPipeline(t, llm)

	record := &PostRecord{Structure: fixtureStructure(t), Post: testDraft}
	plan, err := p.PlanImages(record)
	if err != nil {
		t.Fatalf("PlanImages: %v", err)
	}
	if plan.Hero.Prompt == "" {
		t.Error("hero prompt missing")
	}
	if len(plan.Diagrams) != 2 {
		t.Errorf("diagrams = %d, want 2", len(plan.Diagrams))
	}
}

func TestPlanImagesRequiresHeroPrompt(t *testing.T) {
	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		return `{"hero": {"description": "x", "prompt": ""}, "diagrams": []}`, nil
	}}
	p := newTestPipeline(t, llm)

	record := &PostRecord{Structure: fixtureStructure(t), Post: testDraft}
	_, err := p.PlanImages(record)
	if !errors.Is(err, ErrMalformedModelOutput) {
		t.Errorf("err = %v, want ErrMalformedModelOutput", err)
	}
}

func TestDedupeDiagrams(t *testing.T) {
	diagrams := []DiagramSpec{
		{ImageID: "diagram-1", TargetSection: "Setup", Prompt: "first"},
		{ImageID: "diagram-2", TargetSection: "Setup", Prompt: "second"},
		{ImageID: "diagram-3", TargetSection: "Results", Prompt: "third"},
		{ImageID: "", TargetSection: "Costs", Prompt: "no id"},
		{ImageID: "diagram-5", TargetSection: "Costs", Prompt: "  "},
	}

	kept := dedupeDiagrams(diagrams)
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if kept[0].ImageID != "diagram-1" {
		t.Errorf("first diagram for a section should win, got %s", kept[0].ImageID)
	}
	if kept[1].ImageID != "diagram-3" {
		t.Errorf("got %s", kept[1].ImageID)
	}
}

func TestExtractHeadings(t *testing.T) {
	doc := "# Title\n\nPara\n\n## First Section\n\nText\n\n### Sub\n\n## Second Section\n"
	got := extractHeadings(doc)
	want := []string{"First Section", "Second Section"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
