// Package service ties the change detector, conflict backups, journal and
// event hub together behind the calls exposed to the front-end.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hedge/vaultsync/internal/conflict"
	"github.com/hedge/vaultsync/internal/database"
	"github.com/hedge/vaultsync/internal/hub"
	"github.com/hedge/vaultsync/internal/journal"
	"github.com/hedge/vaultsync/internal/watcher"
	"go.uber.org/zap"
)

// StatusSynced is the only sync status reported. There is no multi-device
// sync state behind it.
const StatusSynced = "synced"

// Hub event names
const (
	EventFileChanged  = "fileChanged"
	EventOpenSettings = "openSettings"
)

var (
	ErrInvalidArgument = watcher.ErrInvalidArgument
	ErrJournalDisabled = errors.New("journal disabled")
)

// EventPayload is the wire form of a change event
type EventPayload struct {
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
	Path      string `json:"path,omitempty"`
}

// NewEventPayload converts a change event to its wire form
func NewEventPayload(ev watcher.ChangeEvent) EventPayload {
	return EventPayload{
		Kind:      string(ev.Kind),
		Timestamp: ev.UnixMilli(),
		Path:      ev.Path,
	}
}

// Options configures a Service. Hub and Recorder are optional.
type Options struct {
	Detector *watcher.Detector
	Hub      *hub.SSEHub
	Recorder *journal.Recorder
	Logger   *zap.Logger
}

// Service is the front-end facing API of the vault sync layer
type Service struct {
	detector *watcher.Detector
	hub      *hub.SSEHub
	recorder *journal.Recorder
	logger   *zap.Logger

	settingsEnabled atomic.Bool

	mu          sync.Mutex
	subscribers map[uint64]chan watcher.ChangeEvent
	nextID      uint64
}

// New creates a service. Run must be called to dispatch change events.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		detector:    opts.Detector,
		hub:         opts.Hub,
		recorder:    opts.Recorder,
		logger:      logger,
		subscribers: make(map[uint64]chan watcher.ChangeEvent),
	}
	s.settingsEnabled.Store(true)
	return s
}

// Run dispatches change events to the journal, the hub and stream
// subscribers until ctx is cancelled
func (s *Service) Run(ctx context.Context) {
	events := s.detector.Events()
	for {
		select {
		case ev := <-events:
			s.dispatch(ev)
		case <-ctx.Done():
			s.closeSubscribers()
			return
		}
	}
}

func (s *Service) dispatch(ev watcher.ChangeEvent) {
	if s.recorder != nil && !s.recorder.RecordEvent(ev) {
		s.logger.Warn("journal rejected event", zap.String("path", ev.Path))
	}

	if s.hub != nil {
		data, err := json.Marshal(NewEventPayload(ev))
		if err != nil {
			s.logger.Error("failed to encode event", zap.Error(err))
		} else {
			s.hub.Broadcast(hub.Message{Event: EventFileChanged, Topic: hub.TopicVault, Data: string(data)})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("subscriber buffer full, dropping event", zap.Uint64("subscriber", id))
		}
	}
}

// Subscribe returns a stream of change events and a function that ends it
func (s *Service) Subscribe() (<-chan watcher.ChangeEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan watcher.ChangeEvent, 64)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}
}

func (s *Service) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// StartWatching starts watching the directory of the vault at path
func (s *Service) StartWatching(path string) error {
	return s.detector.Start(path)
}

// StopWatching stops the active watch, if any
func (s *Service) StopWatching() error {
	return s.detector.Stop()
}

// Watching reports whether a watch is active and its vault path
func (s *Service) Watching() (bool, string) {
	return s.detector.Watching(), s.detector.Target()
}

// SyncStatus always reports StatusSynced
func (s *Service) SyncStatus() string {
	return StatusSynced
}

// HasConflict reports whether a conflict backup of the vault exists
func (s *Service) HasConflict(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	return conflict.HasConflict(path)
}

// CreateConflictBackup copies the vault to a timestamped backup and returns
// its absolute path
func (s *Service) CreateConflictBackup(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: missing path", ErrInvalidArgument)
	}

	backupPath, err := conflict.CreateBackup(path)
	if err != nil {
		s.logger.Warn("conflict backup failed", zap.String("vault", path), zap.Error(err))
		return "", err
	}

	s.logger.Info("conflict backup created", zap.String("vault", path), zap.String("backup", backupPath))
	if s.recorder != nil {
		s.recorder.RecordBackup(path, backupPath)
	}
	return backupPath, nil
}

// ListConflictBackups returns the conflict backups of the vault, newest first
func (s *Service) ListConflictBackups(path string) ([]conflict.Backup, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: missing path", ErrInvalidArgument)
	}
	return conflict.ListBackups(path)
}

// RecentEvents returns journaled events, newest first
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]database.EventRecord, error) {
	if s.recorder == nil {
		return nil, ErrJournalDisabled
	}
	return s.recorder.RecentEvents(ctx, limit)
}

// SetSettingsEnabled locks or unlocks the settings screen
func (s *Service) SetSettingsEnabled(enabled bool) {
	s.settingsEnabled.Store(enabled)
	s.logger.Debug("settings gate changed", zap.Bool("enabled", enabled))
}

// SettingsEnabled reports whether the settings screen can be opened
func (s *Service) SettingsEnabled() bool {
	return s.settingsEnabled.Load()
}

// OpenSettings asks the front-end to show its settings screen. It reports
// false without publishing while settings are locked.
func (s *Service) OpenSettings() bool {
	if !s.settingsEnabled.Load() {
		return false
	}
	if s.hub != nil {
		s.hub.Broadcast(hub.Message{Event: EventOpenSettings, Topic: hub.TopicSettings})
	}
	return true
}
