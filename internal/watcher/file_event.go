package watcher

import "time"

// EventKind classifies a change to a vault file
type EventKind string

// EventKind constants
const (
	EventCreated  EventKind = "created"
	EventModified EventKind = "modified"
	EventDeleted  EventKind = "deleted"
)

// ChangeEvent is a classified change to a vault file in the watched directory.
// Timestamp is taken when the event is classified, not when the OS raised it.
type ChangeEvent struct {
	Kind      EventKind
	Path      string
	Timestamp time.Time
}

// UnixMilli returns the event timestamp in epoch milliseconds
func (e ChangeEvent) UnixMilli() int64 {
	return e.Timestamp.UnixMilli()
}
