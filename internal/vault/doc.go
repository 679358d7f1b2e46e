// Package vault reads and writes the encrypted vault file.
//
// A vault file is a JSON envelope {salt, nonce, ciphertext} where each field
// is an array of byte values. The plaintext is the JSON encoded Vault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the password via Argon2id
//   - 16-byte random salt per save (stored unencrypted)
//   - 12-byte random nonce per save
//
// A wrong password and a tampered file both surface as ErrAuthFailed.
package vault
