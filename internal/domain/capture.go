package domain

import "time"

// Capture is one received metric frame as kept by a capture store.
type Capture struct {
	ReceivedAt   time.Time `json:"received_at"`
	SessionID    string    `json:"session_id"`
	Frame        []byte    `json:"-"`
	ConnectionID uint64    `json:"connection_id"`
	MetricCount  int       `json:"metric_count"`
	Size         int       `json:"size"`
}
