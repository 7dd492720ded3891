package llm

import (
	"fmt"
	"strings"
)

// RenderPrompt substitutes variables into a prompt template.
//
// When vars is non-nil, each {name} placeholder with a matching key is
// replaced. Placeholders without a supplied variable are left verbatim.
// When vars is nil and input is non-empty, input replaces the conventional
// {input} placeholder.
//
// An empty prompt after substitution is a configuration error.
func RenderPrompt(tmpl string, vars map[string]string, input string) (string, error) {
	rendered := tmpl

	if vars != nil {
		for name, value := range vars {
			rendered = strings.ReplaceAll(rendered, "{"+name+"}", value)
		}
	} else if input != "" {
		rendered = strings.ReplaceAll(rendered, "{input}", input)
	}

	if strings.TrimSpace(rendered) == "" {
		return "", fmt.Errorf("prompt is empty after variable substitution")
	}

	return rendered, nil
}
