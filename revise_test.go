package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const revisionDoc = `First paragraph stays exactly as written.

Second paragraph is the one the reviewer flagged
and it continues on a second line.

Third paragraph also stays exactly as written.`

func writeRevisionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "post.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func revisionResponse(t *testing.T, revised, scope string) string {
	t.Helper()
	return mustJSON(t, map[string]string{
		"revised_content": revised,
		"changes_made":    "tightened the flagged paragraph",
		"lines_affected":  "3-4",
		"scope":           scope,
	})
}

func TestRevise(t *testing.T) {
	revised := strings.Replace(revisionDoc,
		"Second paragraph is the one the reviewer flagged\nand it continues on a second line.",
		"Second paragraph, now rewritten to address the comment.", 1)

	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		if !strings.Contains(user, "[LINE 3 - REVIEWER COMMENT HERE]") {
			t.Error("prompt should highlight the target line")
		}
		if !strings.Contains(user, "make this tighter") {
			t.Error("prompt should carry the reviewer comment")
		}
		return revisionResponse(t, revised, "line"), nil
	}}
	p := newTestPipeline(t, llm)

	path := writeRevisionFile(t, revisionDoc)
	result, err := p.Revise(RevisionRequest{FilePath: path, Line: 3, Comment: "make this tighter"})
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if result.ChangesMade == "" {
		t.Error("changes summary missing")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != revised {
		t.Error("file should contain the revised content")
	}
}

func TestReviseRejectsOutOfScopeEdit(t *testing.T) {
	// The model rewrote the flagged paragraph but also "fixed" the first one.
	overreach := strings.Replace(revisionDoc,
		"First paragraph stays exactly as written.",
		"First paragraph, gratuitously rewritten.", 1)

	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		return revisionResponse(t, overreach, "line"), nil
	}}
	p := newTestPipeline(t, llm)

	path := writeRevisionFile(t, revisionDoc)
	_, err := p.Revise(RevisionRequest{FilePath: path, Line: 3, Comment: "tighter"})
	if !errors.Is(err, ErrRevisionOutOfScope) {
		t.Fatalf("err = %v, want ErrRevisionOutOfScope", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != revisionDoc {
		t.Error("a rejected revision must leave the file untouched")
	}
}

func TestReviseDocumentScope(t *testing.T) {
	rewrite := "A complete restructuring of the whole piece.\n\nEvery paragraph changed."

	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		return revisionResponse(t, rewrite, "document"), nil
	}}
	p := newTestPipeline(t, llm)

	path := writeRevisionFile(t, revisionDoc)
	_, err := p.Revise(RevisionRequest{FilePath: path, Line: 3, Comment: "the whole tone is off"})
	if err != nil {
		t.Fatalf("document-scope revision should be accepted: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != rewrite {
		t.Error("file should contain the document-scope rewrite")
	}
}

func TestReviseLineOutOfRange(t *testing.T) {
	p := newTestPipeline(t, &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		t.Error("model should not be called for an invalid line")
		return "", nil
	}})

	path := writeRevisionFile(t, revisionDoc)
	if _, err := p.Revise(RevisionRequest{FilePath: path, Line: 99, Comment: "x"}); err == nil {
		t.Error("expected error for out-of-range line")
	}
	if _, err := p.Revise(RevisionRequest{FilePath: path, Line: 0, Comment: "x"}); err == nil {
		t.Error("expected error for line 0")
	}
}

func TestReviseEmptyResponse(t *testing.T) {
	llm := &fakeLLM{respond: func(kind, system, user, schema string) (string, error) {
		return revisionResponse(t, "   ", "line"), nil
	}}
	p := newTestPipeline(t, llm)

	path := writeRevisionFile(t, revisionDoc)
	_, err := p.Revise(RevisionRequest{FilePath: path, Line: 3, Comment: "x"})
	if !errors.Is(err, ErrMalformedModelOutput) {
		t.Errorf("err = %v, want ErrMalformedModelOutput", err)
	}
}

func TestVerifyRevisionSpan(t *testing.T) {
	t.Run("target paragraph changed", func(t *testing.T) {
		revised := strings.Replace(revisionDoc,
			"Second paragraph is the one the reviewer flagged\nand it continues on a second line.",
			"A rewritten middle paragraph.", 1)
		if err := verifyRevisionSpan(revisionDoc, revised, 3); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("earlier paragraph changed", func(t *testing.T) {
		revised := strings.Replace(revisionDoc, "First paragraph", "Altered first paragraph", 1)
		if err := verifyRevisionSpan(revisionDoc, revised, 3); !errors.Is(err, ErrRevisionOutOfScope) {
			t.Errorf("err = %v, want ErrRevisionOutOfScope", err)
		}
	})

	t.Run("later paragraph changed", func(t *testing.T) {
		revised := strings.Replace(revisionDoc, "Third paragraph", "Altered third paragraph", 1)
		if err := verifyRevisionSpan(revisionDoc, revised, 3); !errors.Is(err, ErrRevisionOutOfScope) {
			t.Errorf("err = %v, want ErrRevisionOutOfScope", err)
		}
	})

	t.Run("paragraph removed", func(t *testing.T) {
		revised := "First paragraph stays exactly as written.\n\nOnly two paragraphs now."
		if err := verifyRevisionSpan(revisionDoc, revised, 3); !errors.Is(err, ErrRevisionOutOfScope) {
			t.Errorf("err = %v, want ErrRevisionOutOfScope", err)
		}
	})
}

func TestSplitAroundParagraph(t *testing.T) {
	before, target, after := splitAroundParagraph(revisionDoc, 3)
	if len(before) != 1 || !strings.HasPrefix(before[0], "First") {
		t.Errorf("before = %v", before)
	}
	if !strings.HasPrefix(target, "Second") {
		t.Errorf("target = %q", target)
	}
	if len(after) != 1 || !strings.HasPrefix(after[0], "Third") {
		t.Errorf("after = %v", after)
	}
}

func TestParagraphs(t *testing.T) {
	paras := paragraphs("one\n\n\n\ntwo\n\nthree")
	if len(paras) != 3 {
		t.Errorf("paragraphs = %v", paras)
	}
}

func TestLineContext(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = strings.Repeat("x", i+1)
	}

	ctx := lineContext(lines, 10)
	if !strings.Contains(ctx, "[LINE 10 - REVIEWER COMMENT HERE]") {
		t.Error("target marker missing")
	}
	// Window is the target line plus five lines either side.
	if got := len(strings.Split(ctx, "\n")); got != 11 {
		t.Errorf("context lines = %d, want 11", got)
	}
}

func TestWriteRevisionSummary(t *testing.T) {
	p := newTestPipeline(t, &fakeLLM{})

	path, err := p.WriteRevisionSummary(&RevisionResult{
		ChangesMade:   "tightened the intro",
		LinesAffected: "3-5",
	})
	if err != nil {
		t.Fatalf("WriteRevisionSummary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "**Changes Made**: tightened the intro\n\n**Lines Affected**: 3-5"
	if string(data) != want {
		t.Errorf("summary = %q", data)
	}
}
