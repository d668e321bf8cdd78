package artifacts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseExtra decodes a JSON extra-data file and sanitizes its keys so the
// document store does not interpret dots as nested field paths.
func ParseExtra(content []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse extra data: %w", err)
	}
	cleaned, _ := CleanDottedKeys(data).(map[string]any)
	return cleaned, nil
}

// CleanDottedKeys replaces dots with underscores in every map key,
// recursively. Values are never rewritten, only keys.
func CleanDottedKeys(value any) any {
	switch v := value.(type) {
	case map[string]any:
		cleaned := make(map[string]any, len(v))
		for key, nested := range v {
			cleaned[strings.ReplaceAll(key, ".", "_")] = CleanDottedKeys(nested)
		}
		return cleaned
	case []any:
		for i, nested := range v {
			v[i] = CleanDottedKeys(nested)
		}
		return v
	default:
		return value
	}
}
