package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const revisionContextLines = 5

// RevisionRequest is one reviewer comment against a published post.
type RevisionRequest struct {
	FilePath string
	Line     int
	Comment  string
}

// RevisionResult reports what a revision changed.
type RevisionResult struct {
	RevisedContent string `json:"revised_content"`
	ChangesMade    string `json:"changes_made"`
	LinesAffected  string `json:"lines_affected"`
	Scope          string `json:"scope"`
}

// Revise re-synthesizes the neighborhood of one line under a reviewer
// instruction while holding the rest of the document fixed. Paragraphs
// outside the targeted one must come back textually identical; the model
// may widen the edit only by declaring document scope, the one sanctioned
// exception for feedback that genuinely applies to the whole piece.
func (p *Pipeline) Revise(req RevisionRequest) (*RevisionResult, error) {
	content, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.FilePath, err)
	}
	document := string(content)

	lines := strings.Split(document, "\n")
	if req.Line < 1 || req.Line > len(lines) {
		return nil, fmt.Errorf("line %d out of range (document has %d lines)", req.Line, len(lines))
	}

	userPrompt, err := renderPrompt(p.config.GetPrompt("revision-user"), map[string]string{
		"file_content": document,
		"line_number":  fmt.Sprintf("%d", req.Line),
		"context":      lineContext(lines, req.Line),
		"comment":      req.Comment,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering revision prompt: %w", err)
	}

	var result RevisionResult
	err = p.llm.CompleteJSON(
		p.config.GetPrompt("revision-system"),
		userPrompt,
		p.config.GetSchema("revision"),
		p.config.Settings.Stages.Revision.options(),
		&result,
	)
	if err != nil {
		return nil, fmt.Errorf("requesting revision: %w", err)
	}

	if strings.TrimSpace(result.RevisedContent) == "" {
		return nil, fmt.Errorf("%w: revision returned no content", ErrMalformedModelOutput)
	}

	if result.Scope != "document" {
		if err := verifyRevisionSpan(document, result.RevisedContent, req.Line); err != nil {
			return nil, err
		}
	} else {
		log.Printf("  ⚠ Model declared document-wide scope for this revision")
	}

	if err := os.WriteFile(req.FilePath, []byte(result.RevisedContent), 0644); err != nil {
		return nil, fmt.Errorf("writing revised content: %w", err)
	}

	return &result, nil
}

// lineContext renders the target line plus surrounding lines, with the
// target highlighted the way the reviewer sees it.
func lineContext(lines []string, target int) string {
	idx := target - 1
	start := idx - revisionContextLines
	if start < 0 {
		start = 0
	}
	end := idx + revisionContextLines + 1
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i == idx {
			fmt.Fprintf(&b, ">>> %s  <<<  [LINE %d - REVIEWER COMMENT HERE]\n", lines[i], target)
		} else {
			b.WriteString(lines[i])
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// verifyRevisionSpan diffs the documents outside the paragraph containing
// the target line. A line-scoped revision that touches unrelated paragraphs
// is a correctness violation, not an accepted outcome.
func verifyRevisionSpan(original, revised string, targetLine int) error {
	beforeParas, _, afterParas := splitAroundParagraph(original, targetLine)

	revisedParas := paragraphs(revised)
	if len(revisedParas) < len(beforeParas)+len(afterParas) {
		return fmt.Errorf("%w: revision removed paragraphs outside the target span", ErrRevisionOutOfScope)
	}

	for i, para := range beforeParas {
		if revisedParas[i] != para {
			return fmt.Errorf("%w: paragraph %d changed before the target line", ErrRevisionOutOfScope, i+1)
		}
	}

	offset := len(revisedParas) - len(afterParas)
	for i, para := range afterParas {
		if revisedParas[offset+i] != para {
			return fmt.Errorf("%w: paragraph changed after the target line", ErrRevisionOutOfScope)
		}
	}

	return nil
}

// splitAroundParagraph splits a document into the paragraphs before, the
// paragraph containing, and the paragraphs after the given line number.
func splitAroundParagraph(doc string, targetLine int) (before []string, target string, after []string) {
	paras := paragraphs(doc)

	line := 0
	found := false
	for _, para := range paras {
		paraLines := strings.Count(para, "\n") + 1
		start := line + 1
		end := line + paraLines

		switch {
		case found:
			after = append(after, para)
		case targetLine >= start && targetLine <= end+1: // +1 covers the blank separator
			target = para
			found = true
		default:
			before = append(before, para)
		}

		line = end + 1 // account for the blank line between paragraphs
	}

	if !found && len(before) > 0 {
		// Line fell past the last paragraph; treat the final one as target.
		target = before[len(before)-1]
		before = before[:len(before)-1]
	}
	return before, target, after
}

// paragraphs splits a document on blank lines.
func paragraphs(doc string) []string {
	var paras []string
	for _, block := range strings.Split(doc, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		paras = append(paras, block)
	}
	return paras
}

// WriteRevisionSummary writes the human-readable acknowledgment for CI to
// post back on the originating comment thread.
func (p *Pipeline) WriteRevisionSummary(result *RevisionResult) (string, error) {
	dir := p.config.Settings.WorkDirectory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}

	path := filepath.Join(dir, "revision_summary.txt")
	summary := fmt.Sprintf("**Changes Made**: %s\n\n**Lines Affected**: %s",
		result.ChangesMade, result.LinesAffected)
	if err := os.WriteFile(path, []byte(summary), 0644); err != nil {
		return "", fmt.Errorf("writing revision summary: %w", err)
	}
	return path, nil
}
