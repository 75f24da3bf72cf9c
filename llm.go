package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// RequestOptions carries per-call model settings, loaded from the stage
// section of settings.yaml.
type RequestOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// llmClient is the seam between the stages and the completion service, so
// each stage boundary can be tested with fixed fixtures instead of live
// calls.
type llmClient interface {
	// Complete sends a free-text prompt and returns the response text.
	Complete(system, user string, opts RequestOptions) (string, error)
	// CompleteJSON sends a schema-constrained prompt and unmarshals the
	// response into out. A response that cannot be parsed is retried once
	// verbatim before being surfaced as ErrMalformedModelOutput.
	CompleteJSON(system, user, schema string, opts RequestOptions, out any) error
}

// AnthropicClient is the production llmClient backed by llmkit.
type AnthropicClient struct {
	apiKey string
}

// NewAnthropicClient creates a client for the given API key.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &AnthropicClient{apiKey: apiKey}, nil
}

// Complete sends a free-text prompt.
func (c *AnthropicClient) Complete(system, user string, opts RequestOptions) (string, error) {
	return c.prompt(system, user, "", opts)
}

// CompleteJSON sends a schema-constrained prompt and parses the JSON
// response. One verbatim retry on a malformed response, then the parse
// failure is surfaced to the caller.
func (c *AnthropicClient) CompleteJSON(system, user, schema string, opts RequestOptions, out any) error {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		text, err := c.prompt(system, user, schema, opts)
		if err != nil {
			return err
		}

		if err := json.Unmarshal([]byte(stripCodeFences(text)), out); err == nil {
			return nil
		} else {
			lastErr = err
			debugLog("parse failure on attempt %d: %v", attempt, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrMalformedModelOutput, lastErr)
}

func (c *AnthropicClient) prompt(system, user, schema string, opts RequestOptions) (string, error) {
	settings := types.RequestSettings{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	response, err := anthropic.PromptWithSettings(system, user, schema, c.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return response.Content[0].Text, nil
}

// stripCodeFences removes a surrounding markdown code fence from a JSON
// response. Models occasionally wrap structured output despite instructions.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}
