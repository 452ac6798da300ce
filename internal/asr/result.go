package asr

import (
	"encoding/json"
	"fmt"
)

// Result represents a transcription result for one audio file
type Result struct {
	Text     string  `json:"text"`     // full transcription text
	Duration float64 `json:"duration"` // processing time in seconds
}

// FormatAsText returns the transcription as plain text
func (r *Result) FormatAsText() string {
	return r.Text
}

// FormatAsJSON returns the transcription as formatted JSON
func (r *Result) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
