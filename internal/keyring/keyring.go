// Package keyring caches vault passwords in the OS keyring, keyed by the
// absolute path of the vault file.
package keyring

import (
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const serviceName = "vaultsync"

func account(vaultPath string) string {
	if abs, err := filepath.Abs(vaultPath); err == nil {
		return abs
	}
	return vaultPath
}

// SavePassword stores a password in the OS keyring
func SavePassword(vaultPath, password string) error {
	return keyring.Set(serviceName, account(vaultPath), password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(vaultPath string) (string, error) {
	return keyring.Get(serviceName, account(vaultPath))
}

// DeletePassword removes a password from the OS keyring
func DeletePassword(vaultPath string) error {
	return keyring.Delete(serviceName, account(vaultPath))
}

// HasPassword checks if a password is stored for the vault
func HasPassword(vaultPath string) bool {
	_, err := GetPassword(vaultPath)
	return err == nil
}
