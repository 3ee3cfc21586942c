package domain

import "time"

// HistoryRecord is one completed search, appended after the response is assembled.
type HistoryRecord struct {
	UserID       string              `json:"user_id"`
	Query        string              `json:"query"`
	ResultCount  int                 `json:"result_count"`
	Mode         string              `json:"mode"`
	Filters      map[string][]string `json:"filters,omitempty"`
	ResponseTime time.Duration       `json:"response_time_ns"`
	Timestamp    time.Time           `json:"timestamp"`
}
