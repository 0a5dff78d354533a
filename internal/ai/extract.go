package ai

import (
	"encoding/json"
	"fmt"
)

// ExtractJSON scans text for the first syntactically balanced JSON
// object — tracking brace depth and string/escape state rather than
// cutting on the first '{'/'}' or a fenced-code-block delimiter — and
// returns it unparsed. A model that wraps its JSON in prose or a
// markdown fence still yields a clean object this way.
func ExtractJSON(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("ai: no balanced JSON object found in response")
}

// expansionPayload is the on-wire shape the model is prompted to
// produce; parseExpansion walks it defensively the way a hand-rolled
// map parser would, rather than trusting Unmarshal to fail loudly on
// a slightly-off model response.
type expansionPayload struct {
	Tasks []struct {
		Name           string   `json:"name"`
		Description    string   `json:"description"`
		Labels         []string `json:"labels"`
		Dependencies   []string `json:"dependencies"`
		EstimatedHours float64  `json:"estimated_hours"`
		Priority       string   `json:"priority"`
	} `json:"tasks"`
	Summary string `json:"summary"`
}

// parseExpansion extracts and decodes a model response into an
// ExpansionResult, defaulting missing fields rather than failing the
// whole expansion over one malformed task entry.
func parseExpansion(raw string) (*ExpansionResult, error) {
	object, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var payload expansionPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return nil, fmt.Errorf("ai: decode expansion JSON: %w", err)
	}

	result := &ExpansionResult{Summary: payload.Summary}
	for _, t := range payload.Tasks {
		if t.Name == "" {
			continue
		}
		priority := t.Priority
		if priority == "" {
			priority = "MEDIUM"
		}
		result.Tasks = append(result.Tasks, ExpandedTask{
			Name:           t.Name,
			Description:    t.Description,
			Labels:         t.Labels,
			Dependencies:   t.Dependencies,
			EstimatedHours: t.EstimatedHours,
			Priority:       priority,
		})
	}
	return result, nil
}
