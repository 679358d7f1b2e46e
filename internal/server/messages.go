package server

import "github.com/hedge/vaultsync/internal/service"

// Empty is used by calls without arguments or results
type Empty struct{}

// PathRequest carries the vault path
type PathRequest struct {
	Path string `json:"path"`
}

// PathResponse carries a created file path
type PathResponse struct {
	Path string `json:"path"`
}

// SyncStatusResponse is the result of GetSyncStatus
type SyncStatusResponse struct {
	Status string `json:"status"`
}

// ConflictResponse is the result of HasConflict
type ConflictResponse struct {
	Conflict bool `json:"conflict"`
}

// BackupInfo describes one conflict backup
type BackupInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"modTime"`
}

// BackupsResponse is the result of ListConflictBackups
type BackupsResponse struct {
	Backups []BackupInfo `json:"backups"`
}

// SettingsRequest locks or unlocks the settings screen
type SettingsRequest struct {
	Enabled bool `json:"enabled"`
}

// OpenSettingsResponse is the result of OpenSettings
type OpenSettingsResponse struct {
	Opened bool `json:"opened"`
}

// FileEvent is a change event pushed on StreamEvents
type FileEvent = service.EventPayload
