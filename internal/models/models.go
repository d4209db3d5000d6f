package models

import "time"

type PromptResponse struct {
	Query   string
	Source  string
	Content string
}

// HistoryEntry is one answered action in a session
type HistoryEntry struct {
	Type     string    `json:"type"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}
