package models

import "time"

// Insight holds LLM-generated meeting analysis in SCQA form.
type Insight struct {
	ID           string    `json:"id"`
	MeetingID    string    `json:"meeting_id"`
	Model        string    `json:"model"`
	Situation    string    `json:"situation"`
	Complication string    `json:"complication"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	CreatedAt    time.Time `json:"created_at"`
}
