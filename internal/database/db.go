package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS change_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	kind TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_change_events_timestamp ON change_events(timestamp);

CREATE TABLE IF NOT EXISTS conflict_backups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vault_path TEXT NOT NULL,
	backup_path TEXT NOT NULL,
	checksum TEXT NOT NULL,
	size INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conflict_backups_vault ON conflict_backups(vault_path);
`

// EventRecord is a journaled change event
type EventRecord struct {
	ID        int64
	Path      string
	Kind      string
	Timestamp time.Time
}

// BackupRecord is a journaled conflict backup
type BackupRecord struct {
	ID         int64
	VaultPath  string
	BackupPath string
	Checksum   string
	Size       int64
	CreatedAt  time.Time
}

// DB wraps the SQLite journal connection
type DB struct {
	conn *sql.DB
}

// NewDB opens the journal at dbPath and creates its tables
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// InsertEvent journals a change event
func (db *DB) InsertEvent(ctx context.Context, path, kind string, ts time.Time) (int64, error) {
	query := `INSERT INTO change_events (path, kind, timestamp) VALUES (?, ?, ?)`

	result, err := db.conn.ExecContext(ctx, query, path, kind, ts.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentEvents returns up to limit events, newest first
func (db *DB) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	query := `
		SELECT id, path, kind, timestamp
		FROM change_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var rec EventRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Kind, &ts); err != nil {
			return nil, err
		}
		rec.Timestamp = time.UnixMilli(ts)
		events = append(events, rec)
	}
	return events, rows.Err()
}

// InsertBackup journals a conflict backup
func (db *DB) InsertBackup(ctx context.Context, rec BackupRecord) (int64, error) {
	query := `
		INSERT INTO conflict_backups (vault_path, backup_path, checksum, size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.conn.ExecContext(ctx, query,
		rec.VaultPath, rec.BackupPath, rec.Checksum, rec.Size, rec.CreatedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Backups returns the journaled backups of a vault, newest first
func (db *DB) Backups(ctx context.Context, vaultPath string) ([]BackupRecord, error) {
	query := `
		SELECT id, vault_path, backup_path, checksum, size, created_at
		FROM conflict_backups
		WHERE vault_path = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, vaultPath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []BackupRecord
	for rows.Next() {
		var rec BackupRecord
		var created int64
		if err := rows.Scan(&rec.ID, &rec.VaultPath, &rec.BackupPath, &rec.Checksum, &rec.Size, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.UnixMilli(created)
		backups = append(backups, rec)
	}
	return backups, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
