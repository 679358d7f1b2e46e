package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltSize)
	key := DeriveKey([]byte("strong_password"), salt)

	ciphertext, nonce, err := Encrypt([]byte("sensitive data"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	plaintext, err := Decrypt(ciphertext, key, nonce)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(plaintext) != "sensitive data" {
		t.Errorf("plaintext = %q", plaintext)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltSize)
	key := DeriveKey([]byte("strong_password"), salt)
	wrong := DeriveKey([]byte("wrong_password"), salt)

	ciphertext, nonce, err := Encrypt([]byte("sensitive data"), key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(ciphertext, wrong, nonce); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)
	a := DeriveKey([]byte("pw"), salt)
	b := DeriveKey([]byte("pw"), salt)

	if len(a) != KeySize {
		t.Fatalf("key length = %d", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("same password and salt must derive the same key")
	}
}

func TestEncryptRejectsShortKey(t *testing.T) {
	if _, _, err := Encrypt([]byte("x"), []byte("short")); !errors.Is(err, ErrInvalidKeyLen) {
		t.Errorf("expected ErrInvalidKeyLen, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	password := []byte("correct horse")

	v := New()
	item := v.Add("bank")
	user := "alice"
	item.Username = &user
	item.Attachments = []Attachment{{Name: "key.txt", Data: Bytes("secret")}}
	v.Update(item)
	v.Add("email")

	if err := Save(path, password, v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, password)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Version != FormatVersion || len(loaded.Items) != 2 {
		t.Fatalf("unexpected vault: %+v", loaded)
	}

	got, ok := loaded.Find(item.ID)
	if !ok {
		t.Fatal("item not found after reload")
	}
	if got.Username == nil || *got.Username != "alice" {
		t.Errorf("username = %v", got.Username)
	}
	if got.Password != nil {
		t.Errorf("password should be null, got %v", *got.Password)
	}
	if len(got.Attachments) != 1 || string(got.Attachments[0].Data) != "secret" {
		t.Errorf("attachments = %+v", got.Attachments)
	}

	if _, err := Load(path, []byte("wrong")); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestFileUsesNumberArrays(t *testing.T) {
	data, err := Seal(New(), []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"salt", "nonce", "ciphertext"} {
		value := string(raw[field])
		if !strings.HasPrefix(value, "[") {
			t.Errorf("%s should be a number array, got %s", field, value)
		}
	}
}

func TestOpenInvalidFile(t *testing.T) {
	tests := map[string]string{
		"not json":    "garbage",
		"short salt":  `{"salt":[1,2],"nonce":[],"ciphertext":[]}`,
		"byte range":  `{"salt":[256],"nonce":[],"ciphertext":[]}`,
		"short nonce": `{"salt":[1,1,1,1,1,1,1,1,1,1,1,1,1,1,1,1],"nonce":[1],"ciphertext":[]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Open([]byte(data), []byte("pw")); !errors.Is(err, ErrInvalidVault) {
				t.Errorf("expected ErrInvalidVault, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.db"), []byte("pw"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	v := New()
	a := v.Add("a")
	b := v.Add("b")

	a.Title = "renamed"
	if !v.Update(a) {
		t.Fatal("Update should find the item")
	}
	if got, _ := v.Find(a.ID); got.Title != "renamed" {
		t.Errorf("title = %s", got.Title)
	}
	if v.Update(Item{ID: "missing"}) {
		t.Error("Update of unknown id should report false")
	}

	if !v.Delete(b.ID) {
		t.Fatal("Delete should remove the item")
	}
	if len(v.Items) != 1 || v.Items[0].ID != a.ID {
		t.Errorf("items = %+v", v.Items)
	}
	if v.Delete(b.ID) {
		t.Error("second Delete should report false")
	}
}
