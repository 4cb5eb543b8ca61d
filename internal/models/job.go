package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type ImportJob struct {
	ID            uuid.UUID  `json:"id"`
	RequestedBy   string     `json:"requested_by"`
	Status        string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	Imported      int        `json:"imported"`
	Skipped       int        `json:"skipped"`
	FailedSources int        `json:"failed_sources"`
	ErrorMessage  *string    `json:"error_message"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// ImportSource is one external batch endpoint.
type ImportSource struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// ImportReport is the outcome for one source of a bulk import.
type ImportReport struct {
	Source   string `json:"source"`
	Fetched  int    `json:"fetched"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Err      string `json:"error,omitempty"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type LeaderboardUpdate struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type ImportStatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Status   string    `json:"status"`
	Imported int       `json:"imported"`
	Skipped  int       `json:"skipped"`
}

// API error envelope for the JSON endpoints under /api/v1.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
