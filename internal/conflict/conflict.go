// Package conflict detects and creates timestamped conflict backups of a
// vault file. A backup lives next to the vault and is named
// {stem}_{yyyy-MM-dd_HH-mm-ss}.{ext}; this package never deletes one.
package conflict

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout formats backup timestamps as yyyy-MM-dd_HH-mm-ss
const TimestampLayout = "2006-01-02_15-04-05"

// Sentinel errors for backup creation
var (
	ErrFileNotFound = errors.New("vault file not found")
	ErrBackupFailed = errors.New("backup failed")
)

// Backup describes a conflict backup found next to a vault file
type Backup struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// splitName splits a file name at its last dot. A name without a dot has an
// empty extension.
func splitName(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// BackupName returns the backup file name for the vault at path taken at t
func BackupName(path string, t time.Time) string {
	stem, ext := splitName(filepath.Base(path))
	name := stem + "_" + t.Format(TimestampLayout)
	if ext != "" {
		name += "." + ext
	}
	return name
}

// isBackupOf reports whether candidate is a conflict backup of the vault
// file named original
func isBackupOf(candidate, original string) bool {
	if candidate == original {
		return false
	}
	stem, ext := splitName(original)
	_, candidateExt := splitName(candidate)
	return strings.HasPrefix(candidate, stem+"_") && candidateExt == ext
}

// CheckConflict reports whether a conflict backup of path exists in its
// directory. Errors listing the directory are returned.
func CheckConflict(path string) (bool, error) {
	original := filepath.Base(path)
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		if isBackupOf(entry.Name(), original) {
			return true, nil
		}
	}
	return false, nil
}

// HasConflict is CheckConflict with every error reported as no conflict.
// An unreadable directory therefore hides an existing conflict.
func HasConflict(path string) bool {
	found, err := CheckConflict(path)
	if err != nil {
		return false
	}
	return found
}

// ListBackups returns the conflict backups of path, newest first
func ListBackups(path string) ([]Backup, error) {
	dir := filepath.Dir(path)
	original := filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() || !isBackupOf(entry.Name(), original) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat
			continue
		}
		absPath, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		backups = append(backups, Backup{
			Name:    entry.Name(),
			Path:    absPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].ModTime.After(backups[j].ModTime)
	})
	return backups, nil
}

// CreateBackup copies the vault at path to a backup named after the current
// local time and returns the backup's absolute path
func CreateBackup(path string) (string, error) {
	return CreateBackupAt(path, time.Now())
}

// CreateBackupAt is CreateBackup with an explicit timestamp. An existing
// backup with the same name is overwritten.
func CreateBackupAt(path string, t time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrBackupFailed, path)
	}

	backupPath, err := filepath.Abs(filepath.Join(filepath.Dir(path), BackupName(path, t)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	if err := copyFile(path, backupPath, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	return backupPath, nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return replaceFile(dst, in, perm)
}

// replaceFile writes r to a temp file next to dst and renames it into place,
// so an existing dst is replaced even when read-only and a failed write
// leaves dst untouched
func replaceFile(dst string, r io.Reader, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}
