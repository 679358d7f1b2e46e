package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hedge/vaultsync/internal/database"
	"github.com/hedge/vaultsync/internal/watcher"
	"go.uber.org/zap"
)

var hashPool = sync.Pool{
	New: func() interface{} {
		return sha256.New()
	},
}

// Recorder writes change events and conflict backups to the journal on a
// worker pool so that recording never holds up event delivery
type Recorder struct {
	db     *database.DB
	pool   *WorkerPool
	logger *zap.Logger
}

// NewRecorder opens the journal at dbPath and starts its workers
func NewRecorder(dbPath string, workers int, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewDB(dbPath)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		db:     db,
		logger: logger,
	}
	r.pool = NewWorkerPool(workers, func(err error) {
		logger.Warn("journal write failed", zap.Error(err))
	})
	r.pool.Start()

	return r, nil
}

// RecordEvent queues a change event for the journal
func (r *Recorder) RecordEvent(ev watcher.ChangeEvent) bool {
	return r.pool.Submit(TaskFunc(func(ctx context.Context) error {
		_, err := r.db.InsertEvent(ctx, ev.Path, string(ev.Kind), ev.Timestamp)
		return err
	}))
}

// RecordBackup queues a backup record. The checksum is computed on the
// worker, so a backup overwritten in the meantime is journaled with its
// latest content.
func (r *Recorder) RecordBackup(vaultPath, backupPath string) bool {
	createdAt := time.Now()
	return r.pool.Submit(TaskFunc(func(ctx context.Context) error {
		checksum, size, err := CalculateHash(backupPath)
		if err != nil {
			return fmt.Errorf("hash %s: %w", backupPath, err)
		}
		_, err = r.db.InsertBackup(ctx, database.BackupRecord{
			VaultPath:  vaultPath,
			BackupPath: backupPath,
			Checksum:   checksum,
			Size:       size,
			CreatedAt:  createdAt,
		})
		return err
	}))
}

// RecentEvents returns the newest journaled events
func (r *Recorder) RecentEvents(ctx context.Context, limit int) ([]database.EventRecord, error) {
	return r.db.RecentEvents(ctx, limit)
}

// Backups returns the journaled backups of a vault
func (r *Recorder) Backups(ctx context.Context, vaultPath string) ([]database.BackupRecord, error) {
	return r.db.Backups(ctx, vaultPath)
}

// Close drains queued writes and closes the journal
func (r *Recorder) Close() error {
	r.pool.Stop()
	return r.db.Close()
}

// CalculateHash returns the hex SHA-256 and size of a file
func CalculateHash(filePath string) (string, int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := hashPool.Get().(hash.Hash)
	defer func() {
		h.Reset()
		hashPool.Put(h)
	}()

	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}
