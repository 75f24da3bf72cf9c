package main

import (
	"strings"
	"testing"
)

func TestPolish(t *testing.T) {
	polished := strings.ReplaceAll(testDraft, "fanned the tests out", "spread the tests")

	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		if !strings.Contains(user, "40 minutes to 12 minutes") {
			t.Error("polish prompt should contain the draft")
		}
		return polished, nil
	}}
	p := newTestPipeline(t, llm)

	record := &PostRecord{Structure: fixtureStructure(t), Draft: testDraft}
	got, flags, err := p.Polish(record)
	if err != nil {
		t.Fatalf("Polish: %v", err)
	}
	if got != polished {
		t.Error("polished text should round-trip from the model response")
	}
	if len(flags) != 0 {
		t.Errorf("unexpected integrity flags: %v", flags)
	}
}

func TestPolishFlagsDroppedEvidence(t *testing.T) {
	draft := "We measured a 37% improvement, documented at https://example.com/report, across 12 services."
	polished := "We measured a thirty-seven percent improvement across a dozen services."

	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		return polished, nil
	}}
	p := newTestPipeline(t, llm)

	record := &PostRecord{Structure: fixtureStructure(t), Draft: draft}
	_, flags, err := p.Polish(record)
	if err != nil {
		t.Fatalf("Polish: %v", err)
	}
	if len(flags) == 0 {
		t.Fatal("dropped citation and numbers should be flagged")
	}

	joined := strings.Join(flags, "\n")
	if !strings.Contains(joined, "https://example.com/report") {
		t.Error("missing citation URL not flagged")
	}
	if !strings.Contains(joined, "37") {
		t.Error("missing numeric token not flagged")
	}
}

func TestVerifyIntegrity(t *testing.T) {
	tests := []struct {
		name      string
		draft     string
		polished  string
		wantFlags int
	}{
		{
			name:      "identical",
			draft:     "A 40% gain, see https://example.com/a.",
			polished:  "A 40% gain, see https://example.com/a.",
			wantFlags: 0,
		},
		{
			name:      "reworded but intact",
			draft:     "Latency fell 40% (https://example.com/a).",
			polished:  "We saw latency fall 40%, per https://example.com/a in the appendix.",
			wantFlags: 0,
		},
		{
			name:      "url dropped",
			draft:     "See https://example.com/a for details.",
			polished:  "See the report for details.",
			wantFlags: 1,
		},
		{
			name:      "number rewritten",
			draft:     "It took 45 minutes.",
			polished:  "It took forty-five minutes.",
			wantFlags: 1,
		},
		{
			name:      "no numbers or urls",
			draft:     "A purely qualitative claim.",
			polished:  "A different qualitative claim.",
			wantFlags: 0,
		},
		{
			name:      "comma-grouped number preserved",
			draft:     "We handled 1,200 requests.",
			polished:  "The system handled 1,200 requests in total.",
			wantFlags: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := verifyIntegrity(tt.draft, tt.polished)
			if len(flags) != tt.wantFlags {
				t.Errorf("flags = %v, want %d", flags, tt.wantFlags)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
