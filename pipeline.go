package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Pipeline runs the staged transformation from raw note to published post.
// One run processes one note; runs are independent and stateless except for
// the image-existence check, which consults prior run output on disk.
type Pipeline struct {
	llm      llmClient
	searcher Searcher       // nil: research degrades to empty findings
	fetcher  *PageFetcher   // nil: snippets only
	images   ImageGenerator // nil: image stages are skipped
	config   *Config

	now         func() time.Time
	backoffUnit time.Duration
}

// NewPipeline wires a pipeline from configuration and the provided service
// credentials. Empty optional keys disable the corresponding capability
// rather than failing construction.
func NewPipeline(ctx context.Context, config *Config, anthropicKey, searchKey, genaiKey string) (*Pipeline, error) {
	llm, err := NewAnthropicClient(anthropicKey)
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	p := &Pipeline{
		llm:         llm,
		config:      config,
		now:         time.Now,
		backoffUnit: time.Second,
	}

	if searchKey != "" {
		searcher, err := NewBingSearcher(searchKey, config.Settings.Search)
		if err != nil {
			return nil, fmt.Errorf("creating searcher: %w", err)
		}
		p.searcher = searcher
		p.fetcher = NewPageFetcher(config.Settings.Search)
	} else {
		log.Printf("⚠ No search API key - research will be skipped")
	}

	if config.Settings.Images.Enabled && genaiKey != "" {
		images, err := NewGeminiGenerator(ctx, genaiKey, config.Settings.Images.Model)
		if err != nil {
			return nil, fmt.Errorf("creating image generator: %w", err)
		}
		p.images = images
	} else {
		log.Printf("⚠ Image generation not configured - posts will ship without images")
	}

	return p, nil
}

// Run executes the full pipeline for one note file. Exactly one stage
// sequence executes end-to-end or the returned error names the first
// failing stage. The final post is committed only after stages 1-5 have
// produced valid results; images are best-effort.
func (p *Pipeline) Run(ctx context.Context, notePath string) (*PostRecord, error) {
	rawNote, err := os.ReadFile(notePath)
	if err != nil {
		return nil, &StageError{Stage: "intake", Err: err}
	}

	record := &PostRecord{
		NotePath:  notePath,
		RawNote:   string(rawNote),
		StartedAt: p.now(),
	}

	log.Printf("[1/8] Structuring note: %s", notePath)
	structure, err := p.StructureNote(record.RawNote)
	if err != nil {
		return record, &StageError{Stage: "structure", Err: err}
	}
	record.Structure = structure
	log.Printf("  ✓ Content type: %s | Sections: %d", structure.ContentType, len(structure.Outline))
	p.snapshot(record, 1)

	log.Printf("[2/8] Researching")
	plan, findings, err := p.Research(ctx, structure)
	record.QueryPlan = plan
	record.Research = findings
	if err != nil {
		// Research failure degrades the run: composition proceeds with
		// empty findings.
		log.Printf("  ✗ Research failed, continuing without evidence: %v", err)
	}
	p.snapshot(record, 2)

	log.Printf("[3/8] Composing draft")
	draft, err := p.Compose(record)
	if err != nil {
		return record, &StageError{Stage: "compose", Err: err}
	}
	record.Draft = draft
	log.Printf("  ✓ Draft complete: ~%d words", wordCount(draft))
	p.snapshot(record, 3)

	log.Printf("[4/8] Polishing")
	polished, flags, err := p.Polish(record)
	if err != nil {
		return record, &StageError{Stage: "polish", Err: err}
	}
	record.Polished = polished
	record.IntegrityFlags = flags
	for _, flag := range flags {
		log.Printf("  ⚠ %s", flag)
	}
	p.snapshot(record, 4)

	log.Printf("[5/8] Reviewing")
	review, err := p.ReviewDraft(record)
	if err != nil {
		return record, &StageError{Stage: "review", Err: err}
	}
	record.Review = review
	log.Printf("  ✓ Quality score: %d/10 | Ready: %t", review.QualityScore, review.ReadyToPublish)

	title, slug, post, err := p.BuildPost(record)
	if err != nil {
		return record, &StageError{Stage: "review", Err: err}
	}
	record.Title = title
	record.Slug = slug
	record.Post = post
	p.snapshot(record, 5)

	if p.images != nil {
		log.Printf("[6/8] Planning images")
		imagePlan, err := p.PlanImages(record)
		if err != nil {
			// Image planning failure leaves the post without images, it
			// does not fail the run.
			log.Printf("  ✗ Image planning failed, continuing without images: %v", err)
		} else {
			record.ImagePlan = imagePlan
			log.Printf("  ✓ Planned %d images", 1+len(imagePlan.Diagrams))
			p.snapshot(record, 6)

			log.Printf("[7/8] Generating images")
			workDir := filepath.Join(p.config.Settings.WorkDirectory, "images", slug)
			results, err := p.RealizeImages(ctx, imagePlan, workDir)
			if err != nil {
				log.Printf("  ✗ Image generation failed, continuing: %v", err)
			} else {
				record.Images = results
				log.Printf("  ✓ Generated %d/%d images (%d failures)",
					len(results.Images), 1+len(imagePlan.Diagrams), len(results.Failures))
				p.snapshot(record, 7)
			}
		}
	} else {
		log.Printf("[6/8] Skipping images: not configured")
	}

	log.Printf("[8/8] Assembling final post")
	finalPath, err := p.Assemble(record)
	if err != nil {
		return record, &StageError{Stage: "assemble", Err: err}
	}
	record.FinalPath = finalPath
	p.snapshot(record, 8)

	log.Printf("✓ Published: %s", finalPath)
	return record, nil
}

// snapshot persists the record after a stage so intermediate state stays
// inspectable and a failed run can be diagnosed stage by stage.
func (p *Pipeline) snapshot(record *PostRecord, stage int) {
	dir := p.config.Settings.WorkDirectory
	if err := os.MkdirAll(dir, 0755); err != nil {
		debugLog("snapshot: %v", err)
		return
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		debugLog("snapshot: %v", err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("stage%d.json", stage))
	if err := os.WriteFile(path, data, 0644); err != nil {
		debugLog("snapshot: %v", err)
	}
}

// PickLatestNote narrows simultaneous input changes to the single most
// recently modified note file: an explicit last-write-wins policy.
func PickLatestNote(dir string) (string, error) {
	var latest string
	var latestMod time.Time

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Continue on errors
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(latestMod) {
			latest = path
			latestMod = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", dir, err)
	}

	if latest == "" {
		return "", errors.New("no note files found")
	}
	return latest, nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
