package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hedge/vaultsync/internal/hub"
	"github.com/hedge/vaultsync/internal/service"
	"github.com/hedge/vaultsync/internal/watcher"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// chanSource is a watcher.Source fed directly by the test
type chanSource struct {
	events chan watcher.RawEvent
}

func (s *chanSource) Subscribe(string) (watcher.Subscription, error) { return s, nil }
func (s *chanSource) Events() <-chan watcher.RawEvent              { return s.events }
func (s *chanSource) Errors() <-chan error                         { return nil }
func (s *chanSource) Close() error                                 { return nil }

type testEnv struct {
	svc    *service.Service
	hub    *hub.SSEHub
	src    *chanSource
	client *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	src := &chanSource{events: make(chan watcher.RawEvent, 16)}
	det := watcher.NewDetector(watcher.Options{Source: src})
	h := hub.NewSSEHub(nil)
	svc := service.New(service.Options{Detector: det, Hub: h})

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	go svc.Run(ctx)

	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer(svc, nil)
	go s.Serve(lis)

	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		s.Stop()
		cancel()
		det.Close()
	})

	return &testEnv{svc: svc, hub: h, src: src, client: client}
}

func TestGRPCStartStopWatching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vault := filepath.Join(t.TempDir(), "notes.db")
	if err := env.client.StartWatching(ctx, vault); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	if watching, target := env.svc.Watching(); !watching || target != vault {
		t.Errorf("Watching() = %v, %s", watching, target)
	}

	if err := env.client.StopWatching(ctx); err != nil {
		t.Fatalf("StopWatching failed: %v", err)
	}
	if err := env.client.StopWatching(ctx); err != nil {
		t.Fatalf("second StopWatching failed: %v", err)
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{
			name: "start with empty path",
			call: func() error { return env.client.StartWatching(ctx, "") },
			code: codes.InvalidArgument,
		},
		{
			name: "start with missing parent",
			call: func() error { return env.client.StartWatching(ctx, filepath.Join(dir, "nope", "v.db")) },
			code: codes.InvalidArgument,
		},
		{
			name: "conflict check with empty path",
			call: func() error { _, err := env.client.HasConflict(ctx, ""); return err },
			code: codes.InvalidArgument,
		},
		{
			name: "backup of missing vault",
			call: func() error { _, err := env.client.CreateConflictBackup(ctx, filepath.Join(dir, "v.db")); return err },
			code: codes.NotFound,
		},
		{
			name: "backup of a directory",
			call: func() error { _, err := env.client.CreateConflictBackup(ctx, dir); return err },
			code: codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if got := status.Code(err); got != tt.code {
				t.Errorf("code = %s, want %s (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestGRPCSyncStatus(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.client.GetSyncStatus(context.Background())
	if err != nil {
		t.Fatalf("GetSyncStatus failed: %v", err)
	}
	if got != "synced" {
		t.Errorf("status = %q", got)
	}
}

func TestGRPCConflictBackups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vault := filepath.Join(t.TempDir(), "notes.db")
	if err := os.WriteFile(vault, []byte("vault"), 0600); err != nil {
		t.Fatal(err)
	}

	conflict, err := env.client.HasConflict(ctx, vault)
	if err != nil || conflict {
		t.Fatalf("HasConflict = %v, %v", conflict, err)
	}

	backup, err := env.client.CreateConflictBackup(ctx, vault)
	if err != nil {
		t.Fatalf("CreateConflictBackup failed: %v", err)
	}
	if !filepath.IsAbs(backup) {
		t.Errorf("backup path %q is not absolute", backup)
	}

	conflict, err = env.client.HasConflict(ctx, vault)
	if err != nil || !conflict {
		t.Errorf("HasConflict = %v, %v", conflict, err)
	}

	backups, err := env.client.ListConflictBackups(ctx, vault)
	if err != nil {
		t.Fatalf("ListConflictBackups failed: %v", err)
	}
	if len(backups) != 1 || backups[0].Path != backup || backups[0].Size != 5 {
		t.Errorf("backups = %+v", backups)
	}
}

func TestGRPCSettingsGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.client.SetSettingsEnabled(ctx, false); err != nil {
		t.Fatal(err)
	}
	if opened, err := env.client.OpenSettings(ctx); err != nil || opened {
		t.Errorf("OpenSettings while locked = %v, %v", opened, err)
	}

	if err := env.client.SetSettingsEnabled(ctx, true); err != nil {
		t.Fatal(err)
	}
	if opened, err := env.client.OpenSettings(ctx); err != nil || !opened {
		t.Errorf("OpenSettings while unlocked = %v, %v", opened, err)
	}
}

func TestGRPCStreamEvents(t *testing.T) {
	env := newTestEnv(t)

	vault := filepath.Join(t.TempDir(), "notes.db")
	if err := env.client.StartWatching(context.Background(), vault); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan FileEvent, 16)
	go env.client.StreamEvents(ctx, func(ev FileEvent) error {
		received <- ev
		return nil
	})

	// The subscription is registered asynchronously, so keep feeding events
	// until one arrives
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-received:
			if ev.Kind != "modified" || ev.Path != vault || ev.Timestamp == 0 {
				t.Errorf("event = %+v", ev)
			}
			return
		case <-tick.C:
			env.src.events <- watcher.RawEvent{Name: vault, Op: watcher.OpWrite}
		case <-ctx.Done():
			t.Fatal("no event streamed")
		}
	}
}

func TestGRPCServerRegistersOnlyVaultSync(t *testing.T) {
	s := NewGRPCServer(service.New(service.Options{Detector: watcher.NewDetector(watcher.Options{})}), nil)
	defer s.Stop()

	info := s.GetServiceInfo()
	if len(info) != 1 {
		t.Fatalf("services = %v", info)
	}
	methods := info[ServiceName].Methods
	if len(methods) != len(ServiceDesc.Methods)+len(ServiceDesc.Streams) {
		t.Errorf("methods = %v", methods)
	}
}
