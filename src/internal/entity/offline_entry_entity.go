package entity

import "time"

type OfflineQueueEntry struct {
	Transaction   Transaction `json:"transaction"`
	QueuedAt      time.Time   `json:"queuedAt"`
	Attempts      int         `json:"attempts"`
	LastError     string      `json:"lastError,omitempty"`
	NextAttemptAt *time.Time  `json:"nextAttemptAt,omitempty"`
}
