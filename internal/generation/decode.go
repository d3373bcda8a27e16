package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON unmarshals a completion into v. Markdown fences and text around
// the outermost object are tolerated.
func DecodeJSON(text string, v any) error {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	if err := json.Unmarshal([]byte(body), v); err == nil {
		return nil
	}
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in completion")
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), v); err != nil {
		return fmt.Errorf("decode completion JSON: %w", err)
	}
	return nil
}
