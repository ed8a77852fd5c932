package gemini

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tabledit/internal/core"
)

// Wire types for the generateContent request body.
type (
	generateRequest struct {
		Contents         []content        `json:"contents"`
		GenerationConfig generationConfig `json:"generationConfig"`
	}

	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	part struct {
		Text string `json:"text"`
	}

	generationConfig struct {
		ResponseMIMEType string  `json:"responseMimeType"`
		ResponseSchema   *schema `json:"responseSchema"`
	}

	schema struct {
		Type             string             `json:"type"`
		Description      string             `json:"description,omitempty"`
		Items            *schema            `json:"items,omitempty"`
		Properties       map[string]*schema `json:"properties,omitempty"`
		PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	}
)

func buildRequest(req core.GenerationRequest) generateRequest {
	return generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildPrompt(req)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   buildSchema(req.Headers),
		},
	}
}

// buildSchema describes an array of objects with one string property per
// header. Headers are trimmed and blank ones omitted.
func buildSchema(headers []string) *schema {
	item := &schema{
		Type:       "OBJECT",
		Properties: make(map[string]*schema, len(headers)),
	}
	for _, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, dup := item.Properties[name]; dup {
			continue
		}
		item.Properties[name] = &schema{
			Type:        "STRING",
			Description: fmt.Sprintf("Value for the column %s", name),
		}
		item.PropertyOrdering = append(item.PropertyOrdering, name)
	}
	return &schema{Type: "ARRAY", Items: item}
}

func buildPrompt(req core.GenerationRequest) string {
	return fmt.Sprintf(
		"The user wants to generate data for a table with the following headers: %s. "+
			"The user's request is: %q. "+
			"Generate data that matches this request and fits the given headers. "+
			"Return only the JSON array.",
		strings.Join(req.Headers, ", "), req.Instruction)
}
