package vault

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
)

// Bytes is a byte slice encoded in JSON as an array of numbers rather than
// base64, which is how vault files store salts, nonces and ciphertext.
type Bytes []byte

// MarshalJSON encodes b as an array of numbers
func (b Bytes) MarshalJSON() ([]byte, error) {
	ints := make([]uint16, len(b))
	for i, v := range b {
		ints[i] = uint16(v)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON decodes an array of numbers in the 0-255 range
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}

	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// encryptedFile is the on-disk envelope of a vault
type encryptedFile struct {
	Salt       Bytes `json:"salt"`
	Nonce      Bytes `json:"nonce"`
	Ciphertext Bytes `json:"ciphertext"`
}

// Seal encrypts v under password with a fresh salt and returns the file bytes
func Seal(v *Vault, password []byte) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := DeriveKey(password, salt)
	defer ClearBytes(key)

	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault: %w", err)
	}
	defer ClearBytes(plaintext)

	ciphertext, nonce, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	return json.Marshal(encryptedFile{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	})
}

// Open decrypts vault file bytes
func Open(data, password []byte) (*Vault, error) {
	var envelope encryptedFile
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVault, err)
	}
	if len(envelope.Salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes", ErrInvalidVault, SaltSize)
	}

	key := DeriveKey(password, envelope.Salt)
	defer ClearBytes(key)

	plaintext, err := Decrypt(envelope.Ciphertext, key, envelope.Nonce)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(plaintext)

	var v Vault
	if err := json.Unmarshal(plaintext, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVault, err)
	}
	if v.Items == nil {
		v.Items = []Item{}
	}
	return &v, nil
}

// Save encrypts v and writes it to path
func Save(path string, password []byte, v *Vault) error {
	data, err := Seal(v, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write vault file: %w", err)
	}
	return nil
}

// Load reads and decrypts the vault at path
func Load(path string, password []byte) (*Vault, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}
	return Open(data, password)
}
