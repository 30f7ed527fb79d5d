package domain

import (
	"strings"
	"time"
)

// RecordEvent announces a committed write.
type RecordEvent struct {
	Type     RecordEventType `json:"type"`
	ID       string          `json:"id"`
	Revision string          `json:"revision"`
	Jobs     []string        `json:"jobs,omitempty"`
	Time     time.Time       `json:"time"`
}

// Matches reports whether the event id starts with any of prefixes.
func (e RecordEvent) Matches(prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(e.ID, prefix) {
			return true
		}
	}
	return false
}
