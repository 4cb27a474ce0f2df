package main

import "time"

// Transaction represents one row of a bank export, reduced to what the prompt needs
type Transaction struct {
	Date     string    `json:"date"`
	Category string    `json:"category"`
	Amount   int64     `json:"amount"`
	Type     string    `json:"type"`
	PostedAt time.Time `json:"-"`
}

// Message is a single chat turn sent to or received from the completion API
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

const (
	commentaryQuestion = "question"
	commentaryAnswer   = "answer"
)

// Commentary is a question or answer shown under the suggestions
type Commentary struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Session holds one user's conversation between requests
type Session struct {
	ID           string       `json:"id"`
	APIKey       string       `json:"api_key,omitempty"`
	Conversation []Message    `json:"conversation"`
	Commentary   []Commentary `json:"commentary"`
	Suggestions  []string     `json:"suggestions"`
	CreatedAt    time.Time    `json:"created_at"`
}
