// Package synclog records the outcome of Emby sync attempts, one immutable
// entry per collection per server.
package synclog

import "time"

// Status is the outcome classification of one sync attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Log is one sync attempt for one collection against one server.
// Entries are never mutated after creation.
type Log struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collectionId"`
	ServerID     string    `json:"serverId"`
	Status       Status    `json:"status"`
	ItemsMatched int       `json:"itemsMatched"`
	ItemsTotal   int       `json:"itemsTotal"`
	ItemsFailed  int       `json:"itemsFailed"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Classify derives the status from matched/total counts and whether the
// attempt hit an error. FAILED only when nothing matched and an error
// occurred; a partial match without error is PARTIAL, not a failure.
func Classify(matched, total int, failed bool) Status {
	if failed && matched == 0 {
		return StatusFailed
	}
	if matched > 0 && matched < total {
		return StatusPartial
	}
	return StatusSuccess
}
