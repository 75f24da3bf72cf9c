package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// ImageGenerator produces binary image data for a prompt. Failures are
// retryable.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// GeminiGenerator generates images with Google's Imagen models via the
// GenAI API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator for the given API key and model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  model,
	}, nil
}

// Generate produces one image for the prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	response, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:    1,
		AspectRatio:       aspectRatio,
		SafetyFilterLevel: genai.SafetyFilterLevelBlockOnlyHigh,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI image generation failed: %w", err)
	}

	if len(response.GeneratedImages) == 0 || response.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("no image returned")
	}

	return response.GeneratedImages[0].Image.ImageBytes, nil
}

// imageJob is one planned image to realize.
type imageJob struct {
	id            string
	imageType     string
	targetSection string
	prompt        string
}

// RealizeImages executes the image plan into dir. Each image whose file
// already exists is skipped before any work is dispatched, so a re-run after
// a partial failure never regenerates already-successful images. Generation
// runs on a bounded worker pool; an image that exhausts its retries is
// recorded as a failure and the run continues without it.
func (p *Pipeline) RealizeImages(ctx context.Context, plan *ImagePlan, dir string) (*ImageResults, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	jobs := []imageJob{{
		id:        "hero",
		imageType: "hero",
		prompt:    plan.Hero.Prompt,
	}}
	for _, d := range plan.Diagrams {
		jobs = append(jobs, imageJob{
			id:            d.ImageID,
			imageType:     "diagram",
			targetSection: d.TargetSection,
			prompt:        d.Prompt,
		})
	}

	results := &ImageResults{}
	var pending []imageJob

	// Existence checks happen before dispatch so they cannot race with the
	// workers below. One pipeline run per post is assumed active at a time.
	for _, job := range jobs {
		path := filepath.Join(dir, job.id+".png")
		if _, err := os.Stat(path); err == nil {
			log.Printf("  Skipping %s: image exists (%s)", job.id, path)
			results.Images = append(results.Images, GeneratedImage{
				ImageID:       job.id,
				ImageType:     job.imageType,
				TargetSection: job.targetSection,
				FilePath:      path,
			})
			continue
		}
		pending = append(pending, job)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Settings.Images.Workers)

	for _, job := range pending {
		job := job
		g.Go(func() error {
			path := filepath.Join(dir, job.id+".png")
			log.Printf("  → Generating %s [%s]...", job.id, job.imageType)

			data, err := p.generateWithRetries(ctx, job.prompt)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				log.Printf("  ✗ %s: %v", job.id, err)
				results.Failures = append(results.Failures, ImageFailure{
					ImageID:       job.id,
					TargetSection: job.targetSection,
					Error:         err.Error(),
				})
				return nil
			}

			if err := os.WriteFile(path, data, 0644); err != nil {
				results.Failures = append(results.Failures, ImageFailure{
					ImageID:       job.id,
					TargetSection: job.targetSection,
					Error:         fmt.Sprintf("writing image: %v", err),
				})
				return nil
			}

			log.Printf("  ✓ %s saved to %s", job.id, path)
			results.Images = append(results.Images, GeneratedImage{
				ImageID:       job.id,
				ImageType:     job.imageType,
				TargetSection: job.targetSection,
				FilePath:      path,
			})
			return nil
		})
	}
	g.Wait()

	return results, nil
}

// generateWithRetries calls the generator with exponential backoff up to the
// configured attempt ceiling.
func (p *Pipeline) generateWithRetries(ctx context.Context, prompt string) ([]byte, error) {
	maxAttempts := p.config.Settings.Images.MaxAttempts
	aspectRatio := p.config.Settings.Images.AspectRatio

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := p.images.Generate(ctx, prompt, aspectRatio)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			backoff := time.Duration(1<<uint(attempt)) * p.backoffUnit
			debugLog("generation attempt %d/%d failed, backing off %s: %v",
				attempt, maxAttempts, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("all retries exhausted: %w", lastErr)
}
