package keyring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPasswordRoundTrip(t *testing.T) {
	keyring.MockInit()

	vault := filepath.Join(t.TempDir(), "notes.db")
	if HasPassword(vault) {
		t.Fatal("no password expected before save")
	}

	if err := SavePassword(vault, "hunter2"); err != nil {
		t.Fatalf("SavePassword failed: %v", err)
	}
	got, err := GetPassword(vault)
	if err != nil || got != "hunter2" {
		t.Fatalf("GetPassword = %q, %v", got, err)
	}

	if err := DeletePassword(vault); err != nil {
		t.Fatalf("DeletePassword failed: %v", err)
	}
	if _, err := GetPassword(vault); !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRelativePathsShareEntry(t *testing.T) {
	keyring.MockInit()

	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })

	if err := SavePassword("notes.db", "secret"); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if !HasPassword(filepath.Join(wd, "notes.db")) {
		t.Error("absolute path should find the password saved via a relative path")
	}
}
