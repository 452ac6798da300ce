package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeOllama(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if !strings.Contains(req.Prompt, "the transcript text") {
			t.Error("Expected transcript in prompt")
		}
		json.NewEncoder(w).Encode(generateResponse{Response: response, Done: true})
	}))
}

func TestGenerateParsesSections(t *testing.T) {
	srv := fakeOllama(t, `SITUATION: The team met to plan the release.
COMPLICATION: Two blockers remain open.
QUESTION: Can the release ship on time?
ANSWER: Yes, if the blockers are fixed this week.`)
	defer srv.Close()

	g := NewGenerator(srv.URL, "test-model")
	insight, err := g.Generate(context.Background(), "meeting-1", "the transcript text")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if insight.MeetingID != "meeting-1" || insight.Model != "test-model" {
		t.Errorf("Unexpected metadata: %+v", insight)
	}
	if insight.Situation != "The team met to plan the release." {
		t.Errorf("Unexpected situation: %q", insight.Situation)
	}
	if insight.Complication != "Two blockers remain open." {
		t.Errorf("Unexpected complication: %q", insight.Complication)
	}
	if insight.Question != "Can the release ship on time?" {
		t.Errorf("Unexpected question: %q", insight.Question)
	}
	if insight.Answer != "Yes, if the blockers are fixed this week." {
		t.Errorf("Unexpected answer: %q", insight.Answer)
	}
}

func TestGenerateMultilineSections(t *testing.T) {
	srv := fakeOllama(t, `SITUATION: First line.
Second line.
ANSWER: Done.`)
	defer srv.Close()

	g := NewGenerator(srv.URL, "test-model")
	insight, err := g.Generate(context.Background(), "meeting-1", "the transcript text")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if insight.Situation != "First line.\nSecond line." {
		t.Errorf("Unexpected situation: %q", insight.Situation)
	}
	if insight.Answer != "Done." {
		t.Errorf("Unexpected answer: %q", insight.Answer)
	}
}

func TestGenerateUnstructuredOutput(t *testing.T) {
	srv := fakeOllama(t, "The model ignored the format and wrote prose.")
	defer srv.Close()

	g := NewGenerator(srv.URL, "test-model")
	insight, err := g.Generate(context.Background(), "meeting-1", "the transcript text")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if insight.Answer != "The model ignored the format and wrote prose." {
		t.Errorf("Expected prose preserved in answer, got %q", insight.Answer)
	}
}

func TestGenerateEmptyTranscript(t *testing.T) {
	g := NewGenerator("http://localhost:0", "test-model")
	if _, err := g.Generate(context.Background(), "meeting-1", "   "); err == nil {
		t.Fatal("Expected error for empty transcript")
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGenerator(srv.URL, "test-model")
	if _, err := g.Generate(context.Background(), "meeting-1", "the transcript text"); err == nil {
		t.Fatal("Expected error for server failure")
	}
}
