package main

import (
	"fmt"
	"strings"
)

// renderPrompt substitutes {{.name}} variables into a prompt template. Every
// variable in vars must appear in the template; a missing variable means the
// template was edited out from under the stage that depends on it.
func renderPrompt(template string, vars map[string]string) (string, error) {
	rendered := strings.TrimSpace(template)
	for name, value := range vars {
		placeholder := "{{." + name + "}}"
		if !strings.Contains(rendered, placeholder) {
			return "", fmt.Errorf("prompt template must contain %s variable", placeholder)
		}
		rendered = strings.ReplaceAll(rendered, placeholder, value)
	}
	return rendered, nil
}
