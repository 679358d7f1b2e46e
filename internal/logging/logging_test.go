package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := New(level)
		if err != nil {
			t.Errorf("New(%q) failed: %v", level, err)
			continue
		}
		logger.Sync()
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewConsole(t *testing.T) {
	if NewConsole(false) == nil || NewConsole(true) == nil {
		t.Error("NewConsole should always return a logger")
	}
}
