package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// ReviewDraft scores the polished draft 1-10 against the house rubric. The
// score is advisory: it is embedded in the output as metadata and never
// blocks downstream stages. A human always has final say.
func (p *Pipeline) ReviewDraft(record *PostRecord) (*Review, error) {
	structure := record.Structure

	userPrompt, err := renderPrompt(p.config.GetPrompt("review-user"), map[string]string{
		"content_type":     string(structure.ContentType),
		"core_insight":     structure.CoreInsight,
		"author_voice":     structure.AuthorVoice,
		"polished_content": record.Polished,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering review prompt: %w", err)
	}

	var review Review
	err = p.llm.CompleteJSON(
		p.config.GetPrompt("review-system"),
		userPrompt,
		p.config.GetSchema("review"),
		p.config.Settings.Stages.Review.options(),
		&review,
	)
	if err != nil {
		return nil, fmt.Errorf("reviewing draft: %w", err)
	}

	if review.QualityScore < 1 || review.QualityScore > 10 {
		return nil, fmt.Errorf("%w: quality score %d out of range", ErrMalformedModelOutput, review.QualityScore)
	}

	return &review, nil
}

// postTemplateData is what the post template renders.
type postTemplateData struct {
	Title       string
	Date        string
	Author      string
	Tags        string
	Description string
	ContentType string
	Status      string
	Review      *Review
	Body        string
}

// BuildPost attaches frontmatter and the embedded review comment to the
// polished body. The date defaults to the run's wall-clock date.
func (p *Pipeline) BuildPost(record *PostRecord) (title, slug, post string, err error) {
	title = extractTitle(record.Polished)
	if title == "" {
		title = "Untitled Post"
	}
	slug = generateSlug(title)

	description := truncate(record.Structure.ThesisOrInsight(), 150)

	status := "Needs Review"
	if record.Review.ReadyToPublish {
		status = "Ready to Publish"
	}

	data := postTemplateData{
		Title:       title,
		Date:        p.now().Format("2006-01-02"),
		Author:      p.config.Settings.Author,
		Tags:        strings.Join(generateTags(record.Structure.ContentType), ", "),
		Description: description,
		ContentType: string(record.Structure.ContentType),
		Status:      status,
		Review:      record.Review,
		Body:        stripH1(record.Polished),
	}

	tmpl, err := template.New("post").Parse(p.config.GetTemplate())
	if err != nil {
		return "", "", "", fmt.Errorf("parsing post template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("executing post template: %w", err)
	}

	return title, slug, buf.String(), nil
}

// generateTags derives frontmatter tags from the content type.
func generateTags(contentType ContentType) []string {
	tags := []string{"technical-leadership"}
	switch contentType {
	case ContentPersonalInsight:
		tags = append(tags, "personal", "insights")
	case ContentTechnicalHowto:
		tags = append(tags, "tutorial", "how-to")
	case ContentBusinessCase:
		tags = append(tags, "business", "roi")
	case ContentThoughtLeadership:
		tags = append(tags, "strategy", "leadership")
	default:
		tags = append(tags, "engineering")
	}
	return tags
}

// extractTitle returns the first H1 heading in a markdown document.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// stripH1 removes H1 lines from the body; the title lives in frontmatter.
func stripH1(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "# ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// generateSlug creates a URL slug from a post title.
func generateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(slug, "-")
	slug = regexp.MustCompile(`-+`).ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	// Limit length to avoid filesystem issues
	if runes := []rune(slug); len(runes) > 50 {
		slug = strings.Trim(string(runes[:50]), "-")
	}

	if slug == "" {
		return "post"
	}
	return slug
}
