package watcher

import (
	"testing"
	"time"

	"github.com/hedge/vaultsync/internal/patterns"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		event      RawEvent
		splitMoves bool
		want       EventKind
		forwarded  bool
	}{
		{"create", RawEvent{"/v/notes.db", OpCreate}, false, EventCreated, true},
		{"write", RawEvent{"/v/notes.db", OpWrite}, false, EventModified, true},
		{"remove", RawEvent{"/v/notes.db", OpRemove}, false, EventDeleted, true},
		{"moved out", RawEvent{"/v/notes.db", OpMovedOut}, false, EventModified, true},
		{"moved in", RawEvent{"/v/notes.db", OpMovedIn}, false, EventModified, true},
		{"moved out split", RawEvent{"/v/notes.db", OpMovedOut}, true, EventDeleted, true},
		{"moved in split", RawEvent{"/v/notes.db", OpMovedIn}, true, EventCreated, true},
		{"create and write", RawEvent{"/v/notes.db", OpCreate | OpWrite}, false, EventCreated, true},
		{"write and chmod", RawEvent{"/v/notes.db", OpWrite | OpChmod}, false, EventModified, true},
		{"chmod only", RawEvent{"/v/notes.db", OpChmod}, false, "", false},
		{"no op", RawEvent{"/v/notes.db", 0}, false, "", false},
		{"other extension", RawEvent{"/v/notes.txt", OpWrite}, false, "", false},
		{"sqlite journal", RawEvent{"/v/notes.db-journal", OpWrite}, false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(nil, tt.splitMoves)
			got, ok := c.Classify(tt.event)
			if ok != tt.forwarded {
				t.Fatalf("forwarded = %v, want %v", ok, tt.forwarded)
			}
			if ok && got.Kind != tt.want {
				t.Errorf("kind = %s, want %s", got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyTimestampAtClassification(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClassifier(nil, false)
	c.now = func() time.Time { return fixed }

	ev, ok := c.Classify(RawEvent{Name: "/v/notes.db", Op: OpWrite})
	if !ok {
		t.Fatal("event should be forwarded")
	}
	if !ev.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, fixed)
	}
	if ev.UnixMilli() != fixed.UnixMilli() {
		t.Errorf("UnixMilli = %d", ev.UnixMilli())
	}
}

func TestClassifyCustomMatcher(t *testing.T) {
	m, err := patterns.NewVaultMatcher([]string{"*.vault"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClassifier(m, false)

	if _, ok := c.Classify(RawEvent{Name: "/v/notes.db", Op: OpWrite}); ok {
		t.Error(".db should be dropped by a *.vault matcher")
	}
	if _, ok := c.Classify(RawEvent{Name: "/v/notes.vault", Op: OpWrite}); !ok {
		t.Error(".vault should be forwarded")
	}
}
