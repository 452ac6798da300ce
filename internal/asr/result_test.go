package asr

import (
	"encoding/json"
	"testing"
)

func TestFormatAsText(t *testing.T) {
	r := &Result{Text: "hello world", Duration: 1.5}
	if got := r.FormatAsText(); got != "hello world" {
		t.Errorf("Expected %q, got %q", "hello world", got)
	}
}

func TestFormatAsJSON(t *testing.T) {
	r := &Result{Text: "hello world", Duration: 1.5}

	out, err := r.FormatAsJSON()
	if err != nil {
		t.Fatalf("FormatAsJSON failed: %v", err)
	}

	var decoded Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Text != r.Text || decoded.Duration != r.Duration {
		t.Errorf("Round trip mismatch: got %+v", decoded)
	}
}
