// Package schedule holds the calendar-event collaborator feeding the
// upcoming-items queue. Events are external data, not documents.
package schedule

import "time"

// Event is a planned site visit or job slot on the owner's calendar.
type Event struct {
	ID       int64     `json:"id"`
	OwnerID  int64     `json:"owner_id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Location *string   `json:"location,omitempty"`
}

// Finished reports whether the event is over relative to now.
func (e Event) Finished(now time.Time) bool {
	end := e.EndsAt
	if end.IsZero() {
		end = e.StartsAt
	}
	return !end.After(now)
}
