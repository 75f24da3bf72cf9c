package main

import "time"

// ContentType classifies what a draft is trying to be. It is detected once
// during structuring and trusted by every later stage.
type ContentType string

const (
	ContentPersonalInsight   ContentType = "personal_insight"
	ContentTechnicalHowto    ContentType = "technical_howto"
	ContentBusinessCase      ContentType = "business_case"
	ContentThoughtLeadership ContentType = "thought_leadership"
	ContentHybrid            ContentType = "hybrid"
)

// NeedsResearch reports whether this content type should be grounded with
// external evidence. Personal narrative is never researched so the model has
// no opening to fabricate supporting statistics for it.
func (c ContentType) NeedsResearch() bool {
	return c != ContentPersonalInsight
}

// Answers holds the five descriptive answers extracted from the raw note.
type Answers struct {
	Who  string `json:"who"`
	What string `json:"what"`
	Why  string `json:"why"`
	How  string `json:"how"`
	When string `json:"when"`
}

// OutlineSection is one planned section of the post.
type OutlineSection struct {
	Title     string   `json:"section_title"`
	Purpose   string   `json:"purpose"`
	KeyPoints []string `json:"key_points"`
}

// Structure is the output of the structuring stage.
type Structure struct {
	ContentType      ContentType      `json:"content_type"`
	CoreInsight      string           `json:"core_insight"`
	Thesis           string           `json:"thesis"`
	Answers          Answers          `json:"answers"`
	AuthorVoice      string           `json:"author_voice"`
	PreserveElements []string         `json:"preserve_elements"`
	Outline          []OutlineSection `json:"outline"`
	Gaps             []string         `json:"gaps_to_address"`
	Guidance         string           `json:"guidance_for_later_stages"`
}

// SearchQuery is one research query proposed by the model.
type SearchQuery struct {
	Query    string `json:"query"`
	Purpose  string `json:"purpose"`
	Priority string `json:"priority"`
	Required bool   `json:"required"`
}

// QueryPlan is the output of the research query-generation call.
type QueryPlan struct {
	GroundingStrategy          string        `json:"grounding_strategy"`
	AuthorExperienceSufficient bool          `json:"author_experience_sufficient"`
	Queries                    []SearchQuery `json:"search_queries"`
}

// Evidence is a single sourced claim kept by research synthesis.
type Evidence struct {
	Claim  string `json:"claim"`
	Source string `json:"source"`
	Metric string `json:"metric,omitempty"`
}

// CaseStudy is a sourced real-world example.
type CaseStudy struct {
	Company string `json:"company"`
	Example string `json:"example"`
	Result  string `json:"result"`
	Source  string `json:"source"`
}

// ResearchFindings is the output of research synthesis. It may be empty: a
// personal piece skips research entirely and a failed synthesis degrades to
// no findings rather than failing the run.
type ResearchFindings struct {
	HasExternalEvidence bool        `json:"has_sufficient_external_evidence"`
	Evidence            []Evidence  `json:"evidence"`
	CaseStudies         []CaseStudy `json:"case_studies"`
	AuthorNotes         string      `json:"author_experience_notes"`
	Gaps                []string    `json:"gaps"`
}

// ReviewIssue is a single problem flagged during review.
type ReviewIssue struct {
	Severity   string `json:"severity"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// Review is the advisory quality assessment. It annotates the post and never
// blocks publication.
type Review struct {
	QualityScore      int           `json:"quality_score"`
	ContentTypeFit    string        `json:"content_type_fit"`
	VoicePreserved    bool          `json:"voice_preserved"`
	CoreInsightClear  bool          `json:"core_insight_clear"`
	ConclusionQuality string        `json:"conclusion_quality"`
	Issues            []ReviewIssue `json:"issues"`
	ReadyToPublish    bool          `json:"ready_to_publish"`
	ReviewerNotes     string        `json:"reviewer_notes"`
}

// HeroSpec describes the single hero image for a post.
type HeroSpec struct {
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// DiagramSpec describes one section diagram. TargetSection must match an H2
// heading in the post verbatim for assembly to place it.
type DiagramSpec struct {
	ImageID       string `json:"image_id"`
	TargetSection string `json:"target_section"`
	DiagramType   string `json:"diagram_type"`
	AltText       string `json:"alt_text"`
	Caption       string `json:"caption"`
	Prompt        string `json:"prompt"`
}

// ImagePlan is the output of image planning: one hero plus at most one
// diagram per section heading.
type ImagePlan struct {
	Hero     HeroSpec      `json:"hero"`
	Diagrams []DiagramSpec `json:"diagrams"`
}

// GeneratedImage records one image realized (or found already on disk).
type GeneratedImage struct {
	ImageID       string `json:"image_id"`
	ImageType     string `json:"image_type"`
	TargetSection string `json:"target_section,omitempty"`
	FilePath      string `json:"file_path"`
}

// ImageFailure records one image that could not be generated after retries.
type ImageFailure struct {
	ImageID       string `json:"image_id"`
	TargetSection string `json:"target_section,omitempty"`
	Error         string `json:"error"`
}

// ImageResults is the output of image realization. A post with failures is
// still publishable; the failed images are simply absent.
type ImageResults struct {
	Images   []GeneratedImage `json:"images"`
	Failures []ImageFailure   `json:"failures"`
}

// PostRecord is the single record accumulated across the pipeline. Stages
// only add fields, never erase earlier ones, so every stage sees full
// upstream context and intermediate state stays inspectable.
type PostRecord struct {
	NotePath  string    `json:"note_path"`
	RawNote   string    `json:"raw_note"`
	StartedAt time.Time `json:"started_at"`

	Structure *Structure        `json:"structure,omitempty"`
	QueryPlan *QueryPlan        `json:"query_plan,omitempty"`
	Research  *ResearchFindings `json:"research,omitempty"`

	Draft          string   `json:"draft,omitempty"`
	Polished       string   `json:"polished,omitempty"`
	IntegrityFlags []string `json:"integrity_flags,omitempty"`

	Review *Review `json:"review,omitempty"`
	Title  string  `json:"title,omitempty"`
	Slug   string  `json:"slug,omitempty"`
	Post   string  `json:"post,omitempty"`

	ImagePlan *ImagePlan    `json:"image_plan,omitempty"`
	Images    *ImageResults `json:"images,omitempty"`

	FinalPath string `json:"final_path,omitempty"`
}
