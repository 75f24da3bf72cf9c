package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Research grounds the structured note with external evidence. It is skipped
// entirely for personal-experience content so the model never gets a chance
// to fabricate supporting statistics for subjective narrative. A failed
// synthesis surfaces ErrResearchSynthesisFailed alongside empty findings:
// composition proceeds without evidence rather than failing the run.
func (p *Pipeline) Research(ctx context.Context, structure *Structure) (*QueryPlan, *ResearchFindings, error) {
	if !structure.ContentType.NeedsResearch() {
		log.Printf("  → Skipping research: %s content", structure.ContentType)
		return nil, &ResearchFindings{}, nil
	}

	if p.searcher == nil {
		log.Printf("  → Skipping research: no search service configured")
		return nil, &ResearchFindings{}, nil
	}

	plan, err := p.generateQueries(structure)
	if err != nil {
		return nil, &ResearchFindings{}, fmt.Errorf("%w: %v", ErrResearchSynthesisFailed, err)
	}
	log.Printf("  → Grounding strategy: %s (%d queries)", plan.GroundingStrategy, len(plan.Queries))

	if plan.AuthorExperienceSufficient {
		log.Printf("  → Author experience identified as primary evidence")
		return plan, &ResearchFindings{
			AuthorNotes: "Author's own experience is the primary evidence.",
		}, nil
	}

	results := p.runSearches(ctx, plan.Queries)
	log.Printf("  → Gathered %d search results", len(results))

	findings, err := p.synthesize(ctx, structure.ContentType, results)
	if err != nil {
		return plan, &ResearchFindings{}, fmt.Errorf("%w: %v", ErrResearchSynthesisFailed, err)
	}

	dropped := filterAttributed(findings, results)
	if dropped > 0 {
		log.Printf("  ⚠ Dropped %d claims without a traceable source", dropped)
	}

	return plan, findings, nil
}

// generateQueries derives a small set of search queries from the outline.
func (p *Pipeline) generateQueries(structure *Structure) (*QueryPlan, error) {
	outlineLines := make([]string, 0, len(structure.Outline))
	for _, section := range structure.Outline {
		outlineLines = append(outlineLines,
			fmt.Sprintf("- %s: %s", section.Title, strings.Join(section.KeyPoints, ", ")))
	}

	userPrompt, err := renderPrompt(p.config.GetPrompt("queries-user"), map[string]string{
		"content_type": string(structure.ContentType),
		"thesis":       structure.ThesisOrInsight(),
		"guidance":     structure.Guidance,
		"outline":      strings.Join(outlineLines, "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering queries prompt: %w", err)
	}

	var plan QueryPlan
	err = p.llm.CompleteJSON(
		p.config.GetPrompt("queries-system"),
		userPrompt,
		p.config.GetSchema("queries"),
		p.config.Settings.Stages.Queries.options(),
		&plan,
	)
	if err != nil {
		return nil, fmt.Errorf("generating search queries: %w", err)
	}
	return &plan, nil
}

// runSearches issues the queries concurrently. The queries are mutually
// independent; results are aggregated only after all complete or time out. A
// failed query just contributes no evidence.
func (p *Pipeline) runSearches(ctx context.Context, queries []SearchQuery) []SearchResult {
	timeout := time.Duration(p.config.Settings.Search.TimeoutSeconds) * time.Second

	var mu sync.Mutex
	var all []SearchResult

	g, ctx := errgroup.WithContext(ctx)
	for _, sq := range queries {
		query := sq.Query
		if strings.TrimSpace(query) == "" {
			continue
		}
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			results, err := p.searcher.Search(qctx, query)
			if err != nil {
				log.Printf("  ✗ Search failed for %q: %v", truncate(query, 50), err)
				return nil
			}

			if p.config.Settings.Search.FetchPages && p.fetcher != nil {
				results = p.enrichResults(qctx, results)
			}

			mu.Lock()
			all = append(all, results...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return all
}

// enrichResults replaces each snippet with a page excerpt where the page can
// be fetched; the ranked snippet stays as the fallback.
func (p *Pipeline) enrichResults(ctx context.Context, results []SearchResult) []SearchResult {
	for i, r := range results {
		excerpt, err := p.fetcher.FetchExcerpt(ctx, r.URL)
		if err != nil {
			debugLog("page fetch failed for %s: %v", r.URL, err)
			continue
		}
		results[i].Snippet = excerpt
	}
	return results
}

// synthesize asks the model to extract sourced evidence from the gathered
// results.
func (p *Pipeline) synthesize(ctx context.Context, contentType ContentType, results []SearchResult) (*ResearchFindings, error) {
	resultsText := "No results found"
	if len(results) > 0 {
		encoded, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding search results: %w", err)
		}
		resultsText = string(encoded)
	}

	userPrompt, err := renderPrompt(p.config.GetPrompt("synthesis-user"), map[string]string{
		"content_type":   string(contentType),
		"search_results": resultsText,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering synthesis prompt: %w", err)
	}

	var findings ResearchFindings
	err = p.llm.CompleteJSON(
		p.config.GetPrompt("synthesis-system"),
		userPrompt,
		p.config.GetSchema("synthesis"),
		p.config.Settings.Stages.Synthesis.options(),
		&findings,
	)
	if err != nil {
		return nil, fmt.Errorf("synthesizing research: %w", err)
	}
	return &findings, nil
}

// filterAttributed drops every claim whose source URL does not appear in the
// gathered search results. Claims without a traceable source are dropped,
// never kept. Returns the number dropped.
func filterAttributed(findings *ResearchFindings, results []SearchResult) int {
	known := make(map[string]bool, len(results))
	for _, r := range results {
		if r.URL != "" {
			known[r.URL] = true
		}
	}

	dropped := 0

	kept := findings.Evidence[:0]
	for _, e := range findings.Evidence {
		if sourceKnown(e.Source, known) {
			kept = append(kept, e)
		} else {
			dropped++
		}
	}
	findings.Evidence = kept

	keptCases := findings.CaseStudies[:0]
	for _, cs := range findings.CaseStudies {
		if sourceKnown(cs.Source, known) {
			keptCases = append(keptCases, cs)
		} else {
			dropped++
		}
	}
	findings.CaseStudies = keptCases

	if len(findings.Evidence) == 0 && len(findings.CaseStudies) == 0 {
		findings.HasExternalEvidence = false
	}

	return dropped
}

// sourceKnown accepts a source that is a known URL, or a citation string
// containing one. The URLs extracted from the source must equal a known URL
// exactly; a fabricated URL that merely embeds a known one does not count as
// an attribution.
func sourceKnown(source string, known map[string]bool) bool {
	if known[source] {
		return true
	}
	for _, url := range citationURLPattern.FindAllString(source, -1) {
		if known[url] {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes, never splitting a multi-byte
// character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
