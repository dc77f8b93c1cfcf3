package insight

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	braceRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON unmarshals a JSON object from raw LLM output. It tries a
// direct parse first, then a markdown-fenced block, then the widest brace
// span.
func ExtractJSON(content string, v any) error {
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}

	if m := fenceRe.FindStringSubmatch(content); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	if m := braceRe.FindString(content); m != "" {
		if err := json.Unmarshal([]byte(m), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no JSON object found in response")
}
