package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".blog-pipeline"

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	SettingsPath *string
	TemplatePath *string
	PromptDir    *string
	SchemaDir    *string
}

// Embedded configuration files
//
//go:embed .blog-pipeline/settings.yaml
var defaultSettings string

//go:embed .blog-pipeline/post-template.md
var defaultTemplate string

//go:embed .blog-pipeline/prompts/structure-system.md
var structureSystemPrompt string

//go:embed .blog-pipeline/prompts/structure-user.md
var structureUserPrompt string

//go:embed .blog-pipeline/prompts/queries-system.md
var queriesSystemPrompt string

//go:embed .blog-pipeline/prompts/queries-user.md
var queriesUserPrompt string

//go:embed .blog-pipeline/prompts/synthesis-system.md
var synthesisSystemPrompt string

//go:embed .blog-pipeline/prompts/synthesis-user.md
var synthesisUserPrompt string

//go:embed .blog-pipeline/prompts/compose-system.md
var composeSystemPrompt string

//go:embed .blog-pipeline/prompts/compose-user.md
var composeUserPrompt string

//go:embed .blog-pipeline/prompts/polish-system.md
var polishSystemPrompt string

//go:embed .blog-pipeline/prompts/polish-user.md
var polishUserPrompt string

//go:embed .blog-pipeline/prompts/review-system.md
var reviewSystemPrompt string

//go:embed .blog-pipeline/prompts/review-user.md
var reviewUserPrompt string

//go:embed .blog-pipeline/prompts/image-plan-system.md
var imagePlanSystemPrompt string

//go:embed .blog-pipeline/prompts/image-plan-user.md
var imagePlanUserPrompt string

//go:embed .blog-pipeline/prompts/revision-system.md
var revisionSystemPrompt string

//go:embed .blog-pipeline/prompts/revision-user.md
var revisionUserPrompt string

//go:embed .blog-pipeline/schemas/structure.json
var structureSchema string

//go:embed .blog-pipeline/schemas/queries.json
var queriesSchema string

//go:embed .blog-pipeline/schemas/synthesis.json
var synthesisSchema string

//go:embed .blog-pipeline/schemas/review.json
var reviewSchema string

//go:embed .blog-pipeline/schemas/image-plan.json
var imagePlanSchema string

//go:embed .blog-pipeline/schemas/revision.json
var revisionSchema string

var defaultPrompts = map[string]string{
	"structure-system":  structureSystemPrompt,
	"structure-user":    structureUserPrompt,
	"queries-system":    queriesSystemPrompt,
	"queries-user":      queriesUserPrompt,
	"synthesis-system":  synthesisSystemPrompt,
	"synthesis-user":    synthesisUserPrompt,
	"compose-system":    composeSystemPrompt,
	"compose-user":      composeUserPrompt,
	"polish-system":     polishSystemPrompt,
	"polish-user":       polishUserPrompt,
	"review-system":     reviewSystemPrompt,
	"review-user":       reviewUserPrompt,
	"image-plan-system": imagePlanSystemPrompt,
	"image-plan-user":   imagePlanUserPrompt,
	"revision-system":   revisionSystemPrompt,
	"revision-user":     revisionUserPrompt,
}

var defaultSchemas = map[string]string{
	"structure":  structureSchema,
	"queries":    queriesSchema,
	"synthesis":  synthesisSchema,
	"review":     reviewSchema,
	"image-plan": imagePlanSchema,
	"revision":   revisionSchema,
}

// StageSettings holds per-stage model configuration.
type StageSettings struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

func (s StageSettings) options() RequestOptions {
	return RequestOptions{
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	}
}

// SearchSettings configures the web-search service.
type SearchSettings struct {
	Endpoint       string `yaml:"endpoint"`
	Count          int    `yaml:"count"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	FetchPages     bool   `yaml:"fetch_pages"`
	MaxPageExcerpt int    `yaml:"max_page_excerpt"`
}

// ImageSettings configures image generation. Aspect ratio and output format
// are fixed configuration, not negotiated per call.
type ImageSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Model       string `yaml:"model"`
	AspectRatio string `yaml:"aspect_ratio"`
	MaxAttempts int    `yaml:"max_attempts"`
	Workers     int    `yaml:"workers"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	InputDirectory  string `yaml:"input_directory"`
	OutputDirectory string `yaml:"output_directory"`
	WorkDirectory   string `yaml:"work_directory"`
	Author          string `yaml:"author"`
	Stages          struct {
		Structure StageSettings `yaml:"structure"`
		Queries   StageSettings `yaml:"queries"`
		Synthesis StageSettings `yaml:"synthesis"`
		Compose   StageSettings `yaml:"compose"`
		Polish    StageSettings `yaml:"polish"`
		Review    StageSettings `yaml:"review"`
		ImagePlan StageSettings `yaml:"image_plan"`
		Revision  StageSettings `yaml:"revision"`
	} `yaml:"stages"`
	Search SearchSettings `yaml:"search"`
	Images ImageSettings  `yaml:"images"`
}

// Config holds configuration and overrides
type Config struct {
	Settings  *Settings
	Overrides *ConfigOverrides
}

// NewConfig creates a new Config with settings and overrides
func NewConfig(overrides *ConfigOverrides) (*Config, error) {
	var settings *Settings
	var err error

	if overrides != nil && overrides.SettingsPath != nil {
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("settings file missing: %s: %w", *overrides.SettingsPath, err)
		}
	} else {
		settings, err = loadSettings(getConfigPath("settings.yaml"))
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	return &Config{
		Settings:  settings,
		Overrides: overrides,
	}, nil
}

// GetPrompt returns the prompt text for the given name (from an override
// directory or the embedded default).
func (c *Config) GetPrompt(name string) string {
	if c.Overrides != nil && c.Overrides.PromptDir != nil {
		path := filepath.Join(*c.Overrides.PromptDir, name+".md")
		if content, err := os.ReadFile(path); err == nil {
			return string(content)
		}
	}
	return defaultPrompts[name]
}

// GetSchema returns the JSON output schema for the given name.
func (c *Config) GetSchema(name string) string {
	if c.Overrides != nil && c.Overrides.SchemaDir != nil {
		path := filepath.Join(*c.Overrides.SchemaDir, name+".json")
		if content, err := os.ReadFile(path); err == nil {
			return string(content)
		}
	}
	return defaultSchemas[name]
}

// GetTemplate returns the post template (from override file or embedded)
func (c *Config) GetTemplate() string {
	if c.Overrides != nil && c.Overrides.TemplatePath != nil {
		if content, err := os.ReadFile(*c.Overrides.TemplatePath); err == nil {
			return string(content)
		}
	}
	return defaultTemplate
}

// loadSettings loads settings from a YAML file, falling back to the embedded
// defaults when the file does not exist.
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		data = []byte(defaultSettings)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	applySettingsDefaults(&settings)
	return &settings, nil
}

// loadSettingsRequired loads settings from a YAML file, failing if the file
// doesn't exist.
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	applySettingsDefaults(&settings)
	return &settings, nil
}

func applySettingsDefaults(s *Settings) {
	if s.InputDirectory == "" {
		s.InputDirectory = "notes"
	}
	if s.OutputDirectory == "" {
		s.OutputDirectory = "posts"
	}
	if s.WorkDirectory == "" {
		s.WorkDirectory = filepath.Join(defaultConfigDir, "work")
	}
	if s.Search.Count <= 0 {
		s.Search.Count = 5
	}
	if s.Search.TimeoutSeconds <= 0 {
		s.Search.TimeoutSeconds = 10
	}
	if s.Search.MaxRetries <= 0 {
		s.Search.MaxRetries = 3
	}
	if s.Search.MaxPageExcerpt <= 0 {
		s.Search.MaxPageExcerpt = 4000
	}
	if s.Images.AspectRatio == "" {
		s.Images.AspectRatio = "16:9"
	}
	if s.Images.MaxAttempts <= 0 {
		s.Images.MaxAttempts = 3
	}
	if s.Images.Workers <= 0 {
		s.Images.Workers = 2
	}
}

// getConfigPath returns the path to a config file in .blog-pipeline directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and writes settings.yaml
// if needed so users have a file to customize.
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		log.Printf("Writing default settings to %s", settingsPath)
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}
