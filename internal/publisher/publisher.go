// Package publisher defines the completion-event publishing contract.
package publisher

import "context"

// Publisher pushes crawl completion events to a message bus.
type Publisher interface {
	// Publish sends the payload to the given topic and returns the
	// server-assigned message ID.
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// TaskEvent is the payload published after a crawl task is persisted.
type TaskEvent struct {
	TaskID    int64    `json:"task_id"`
	URL       string   `json:"url"`
	Status    string   `json:"status"`
	Success   bool     `json:"success"`
	AIModes   []string `json:"ai_modes,omitempty"`
	FileCount int      `json:"file_count"`
	Timestamp string   `json:"timestamp"`
}
