package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hedge/vaultsync/internal/hub"
	"github.com/hedge/vaultsync/internal/journal"
	"github.com/hedge/vaultsync/internal/service"
	"github.com/hedge/vaultsync/internal/watcher"
)

func newHTTPTestServer(t *testing.T, withJournal bool) (*httptest.Server, *chanSource, *service.Service) {
	t.Helper()

	src := &chanSource{events: make(chan watcher.RawEvent, 16)}
	det := watcher.NewDetector(watcher.Options{Source: src})
	h := hub.NewSSEHub(nil)

	var rec *journal.Recorder
	if withJournal {
		var err error
		rec, err = journal.NewRecorder(filepath.Join(t.TempDir(), "journal.sqlite"), 1, nil)
		if err != nil {
			t.Fatalf("NewRecorder failed: %v", err)
		}
	}
	svc := service.New(service.Options{Detector: det, Hub: h, Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	go svc.Run(ctx)

	ts := httptest.NewServer(NewHTTPServer(svc, h, 0, nil).Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		det.Close()
		if rec != nil {
			rec.Close()
		}
	})
	return ts, src, svc
}

func TestHTTPStatus(t *testing.T) {
	ts, _, _ := newHTTPTestServer(t, false)

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "synced" {
		t.Errorf("body = %v", body)
	}
}

func TestHTTPHealth(t *testing.T) {
	ts, _, svc := newHTTPTestServer(t, false)

	vault := filepath.Join(t.TempDir(), "notes.db")
	if err := svc.StartWatching(vault); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status   string `json:"status"`
		Watching bool   `json:"watching"`
		Vault    string `json:"vault"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || !body.Watching || body.Vault != vault {
		t.Errorf("body = %+v", body)
	}
}

func TestHTTPEventsWithoutJournal(t *testing.T) {
	ts, _, _ := newHTTPTestServer(t, false)

	resp, err := http.Get(ts.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d", resp.StatusCode)
	}
}

func TestHTTPEventsInvalidLimit(t *testing.T) {
	ts, _, _ := newHTTPTestServer(t, true)

	resp, err := http.Get(ts.URL + "/events?limit=-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d", resp.StatusCode)
	}
}

func TestSSEDeliversFileChanged(t *testing.T) {
	ts, src, svc := newHTTPTestServer(t, false)

	vault := filepath.Join(t.TempDir(), "notes.db")
	if err := svc.StartWatching(vault); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse?topics=vault", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// The connected event is written after the client is registered
	for line := range lines {
		if line == "event: connected" {
			break
		}
	}

	src.events <- watcher.RawEvent{Name: vault, Op: watcher.OpRemove}

	var event string
	for line := range lines {
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == service.EventFileChanged:
			var payload FileEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
				t.Fatalf("bad payload %q: %v", line, err)
			}
			if payload.Kind != "deleted" || payload.Path != vault {
				t.Errorf("payload = %+v", payload)
			}
			return
		}
	}
	t.Fatal("stream ended before fileChanged")
}

func TestTopicsFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"*"}},
		{"topics=vault", []string{"vault"}},
		{"topics=vault,%20settings,", []string{"vault", "settings"}},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/sse?"+tt.query, nil)
		got := topicsFromRequest(r)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("topicsFromRequest(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
