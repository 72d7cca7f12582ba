package domain

import "time"

// StatusSnapshot is the one-shot view composed for the status endpoint:
// write-path state, freshness stamp, and what the cache currently holds.
type StatusSnapshot struct {
	Status        string
	LastMessageAt time.Time
	CachedEntries int
	AvailableDays map[Topic][]string
}
