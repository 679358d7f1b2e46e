package cmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/hedge/vaultsync/internal/keyring"
	"github.com/hedge/vaultsync/internal/vault"
	"golang.org/x/term"
)

const passwordEnv = "VAULTSYNC_PASSWORD"

// readPassword reads a password from the terminal without echoing
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// readPasswordConfirm reads a password twice and ensures they match
func readPasswordConfirm() ([]byte, error) {
	first, err := readPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	second, err := readPassword("Confirm password: ")
	if err != nil {
		vault.ClearBytes(first)
		return nil, err
	}
	defer vault.ClearBytes(second)

	if string(first) != string(second) {
		vault.ClearBytes(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}

// vaultPassword returns the password for vaultPath from the keyring, the
// environment or a prompt, in that order. The caller clears it.
func vaultPassword(vaultPath string) ([]byte, error) {
	if pw, err := keyring.GetPassword(vaultPath); err == nil {
		logger.Debug("using keyring password")
		return []byte(pw), nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return []byte(pw), nil
	}
	return readPassword("Enter password: ")
}

// newVaultPassword is like vaultPassword but confirms a prompted password
func newVaultPassword() ([]byte, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return []byte(pw), nil
	}
	return readPasswordConfirm()
}
