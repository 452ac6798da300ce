package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"intellimind/internal/models"
)

const scqaPrompt = `You are an assistant that analyzes meeting transcripts.
Read the transcript below and produce a structured analysis in the SCQA framework.
Respond with exactly four sections, each starting with one of these headings on
its own line: SITUATION:, COMPLICATION:, QUESTION:, ANSWER:

Transcript:
%s`

// Generator produces SCQA insights from a transcript via an
// Ollama-compatible completion API.
type Generator struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewGenerator creates a Generator talking to the given Ollama endpoint
// (e.g. http://localhost:11434) with the given model name.
func NewGenerator(endpoint, model string) *Generator {
	return &Generator{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate analyzes a transcript and returns an insight for the meeting.
func (g *Generator) Generate(ctx context.Context, meetingID, transcript string) (*models.Insight, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	payload := generateRequest{
		Model:  g.model,
		Prompt: fmt.Sprintf(scqaPrompt, transcript),
		Stream: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	insight := parseSCQA(gr.Response)
	insight.MeetingID = meetingID
	insight.Model = g.model
	return insight, nil
}

// parseSCQA splits the model output into the four SCQA sections. Text that
// appears before the first heading, or output with no headings at all, goes
// into the Answer section so nothing is silently dropped.
func parseSCQA(text string) *models.Insight {
	sections := map[string]*strings.Builder{
		"SITUATION":    {},
		"COMPLICATION": {},
		"QUESTION":     {},
		"ANSWER":       {},
	}

	current := ""
	var preamble strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		matched := false
		for name := range sections {
			upper := strings.ToUpper(trimmed)
			if strings.HasPrefix(upper, name+":") || strings.HasPrefix(upper, "**"+name) || upper == name {
				current = name
				rest := ""
				if idx := strings.Index(trimmed, ":"); idx >= 0 {
					rest = strings.TrimSpace(trimmed[idx+1:])
				}
				if rest != "" {
					sections[name].WriteString(rest)
				}
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if current == "" {
			preamble.WriteString(line + "\n")
			continue
		}
		b := sections[current]
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}

	insight := &models.Insight{
		Situation:    strings.TrimSpace(sections["SITUATION"].String()),
		Complication: strings.TrimSpace(sections["COMPLICATION"].String()),
		Question:     strings.TrimSpace(sections["QUESTION"].String()),
		Answer:       strings.TrimSpace(sections["ANSWER"].String()),
	}
	if insight.Situation == "" && insight.Complication == "" && insight.Question == "" && insight.Answer == "" {
		insight.Answer = strings.TrimSpace(preamble.String())
	}
	return insight
}
