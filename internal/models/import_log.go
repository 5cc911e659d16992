package models

import "time"

// ImportLog records one catalog import.
type ImportLog struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Received     int       `json:"received"`
	Upserted     int64     `json:"upserted"`
	Skipped      int       `json:"skipped"`
	DurationMs   *int      `json:"duration_ms"`
	ErrorMessage *string   `json:"error_message"`
}
