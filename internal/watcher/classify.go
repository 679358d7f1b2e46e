package watcher

import (
	"time"

	"github.com/hedge/vaultsync/internal/patterns"
)

// forwarded are the raw operations that can produce a ChangeEvent.
// Attribute-only changes never do.
const forwarded = OpCreate | OpWrite | OpRemove | OpMovedOut | OpMovedIn

// Classifier filters raw events down to vault files and maps them to kinds
type Classifier struct {
	matcher    *patterns.Matcher
	splitMoves bool
	now        func() time.Time
}

// NewClassifier creates a classifier. A nil matcher selects *.db files.
// With splitMoves, a move out of the directory is reported as deleted and a
// move in as created; otherwise both are reported as modified.
func NewClassifier(matcher *patterns.Matcher, splitMoves bool) *Classifier {
	if matcher == nil {
		matcher, _ = patterns.NewVaultMatcher(nil, nil)
	}
	return &Classifier{
		matcher:    matcher,
		splitMoves: splitMoves,
		now:        time.Now,
	}
}

// Classify returns the change event for ev, or false if ev is dropped
func (c *Classifier) Classify(ev RawEvent) (ChangeEvent, bool) {
	if !c.matcher.Matches(ev.Name) {
		return ChangeEvent{}, false
	}
	if ev.Op&forwarded == 0 {
		return ChangeEvent{}, false
	}

	return ChangeEvent{
		Kind:      c.kind(ev.Op),
		Path:      ev.Name,
		Timestamp: c.now(),
	}, true
}

func (c *Classifier) kind(op Op) EventKind {
	switch {
	case op.Has(OpCreate):
		return EventCreated
	case op.Has(OpRemove):
		return EventDeleted
	case op.Has(OpWrite):
		return EventModified
	case c.splitMoves && op.Has(OpMovedOut):
		return EventDeleted
	case c.splitMoves && op.Has(OpMovedIn):
		return EventCreated
	}

	// Moves and anything unrecognised
	return EventModified
}
