package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InsertImages splices image references into a frontmattered post: the hero
// goes immediately after the frontmatter and review comment block, each
// diagram immediately after the line of the H2 heading its target names.
// Heading matching is exact and case-sensitive; a diagram whose target is
// not found is silently omitted. The transform is deterministic and
// idempotent for a given post and image set.
func InsertImages(post string, results *ImageResults, plan *ImagePlan, relDir string) string {
	if results == nil || len(results.Images) == 0 {
		return post
	}

	imageByID := make(map[string]GeneratedImage, len(results.Images))
	for _, img := range results.Images {
		imageByID[img.ImageID] = img
	}

	var diagramByHeading map[string]DiagramSpec
	if plan != nil {
		diagramByHeading = make(map[string]DiagramSpec, len(plan.Diagrams))
		for _, d := range plan.Diagrams {
			diagramByHeading[d.TargetSection] = d
		}
	}

	lines := strings.Split(post, "\n")
	out := make([]string, 0, len(lines)+4*len(results.Images))

	heroPending := false
	if _, ok := imageByID["hero"]; ok {
		heroPending = true
	}

	fences := 0
	inComment := false

	for _, line := range lines {
		out = append(out, line)
		trimmed := strings.TrimSpace(line)

		if trimmed == "---" && fences < 2 {
			fences++
			continue
		}

		if strings.HasPrefix(trimmed, "<!--") && !strings.Contains(trimmed, "-->") {
			inComment = true
			continue
		}
		if inComment {
			if strings.Contains(trimmed, "-->") {
				inComment = false
			}
			continue
		}

		// First body line after frontmatter and any comment block: the hero
		// goes right before it, which keeps it directly under the metadata.
		if heroPending && fences >= 2 && trimmed != "" && !strings.HasPrefix(trimmed, "<!--") {
			hero := imageByID["hero"]
			ref := relDir + "/" + filepath.Base(hero.FilePath)
			out = out[:len(out)-1]
			out = append(out, "", fmt.Sprintf("![Hero Image](%s)", ref), "", line)
			heroPending = false
		}

		if strings.HasPrefix(line, "## ") {
			heading := strings.TrimSpace(line[3:])
			diagram, ok := diagramByHeading[heading]
			if !ok {
				continue
			}
			img, ok := imageByID[diagram.ImageID]
			if !ok {
				continue
			}

			ref := relDir + "/" + filepath.Base(img.FilePath)
			alt := diagram.AltText
			if alt == "" {
				alt = "Diagram: " + heading
			}

			out = append(out, "", fmt.Sprintf("![%s](%s)", alt, ref))
			if diagram.Caption != "" {
				out = append(out, fmt.Sprintf("*%s*", diagram.Caption))
			}
			out = append(out, "")
		}
	}

	return strings.Join(out, "\n")
}

// CopyImages copies every generated image's payload into destDir. Returns
// the copied paths.
func CopyImages(results *ImageResults, destDir string) ([]string, error) {
	if results == nil || len(results.Images) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating images directory: %w", err)
	}

	var copied []string
	for _, img := range results.Images {
		data, err := os.ReadFile(img.FilePath)
		if err != nil {
			return copied, fmt.Errorf("reading image %s: %w", img.ImageID, err)
		}

		dest := filepath.Join(destDir, filepath.Base(img.FilePath))
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return copied, fmt.Errorf("copying image %s: %w", img.ImageID, err)
		}
		copied = append(copied, dest)
	}
	return copied, nil
}

// Assemble writes the final post and its sibling image directory under the
// output directory. Assembly only runs once stages 1-5 have produced a
// valid frontmattered post; images are best-effort and may be absent.
func (p *Pipeline) Assemble(record *PostRecord) (string, error) {
	outDir := p.config.Settings.OutputDirectory
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	final := record.Post
	if record.Images != nil && len(record.Images.Images) > 0 {
		imagesDir := filepath.Join(outDir, record.Slug)
		if _, err := CopyImages(record.Images, imagesDir); err != nil {
			return "", err
		}
		final = InsertImages(record.Post, record.Images, record.ImagePlan, record.Slug)
	}

	path := filepath.Join(outDir, record.Slug+".md")
	if err := os.WriteFile(path, []byte(final), 0644); err != nil {
		return "", fmt.Errorf("writing final post: %w", err)
	}
	return path, nil
}
