package vault

import (
	"time"

	"github.com/google/uuid"
)

// FormatVersion is the plaintext format version written by New
const FormatVersion = 1

// Attachment is a binary blob stored with an item
type Attachment struct {
	Name string `json:"name"`
	Data Bytes  `json:"data"`
}

// Item is a single vault entry
type Item struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Username    *string      `json:"username"`
	Password    *string      `json:"password"`
	URL         *string      `json:"url"`
	Notes       *string      `json:"notes"`
	Category    *string      `json:"category"`
	Attachments []Attachment `json:"attachments"`
	UpdatedAt   int64        `json:"updated_at"`
}

// NewItem creates an item with a fresh id
func NewItem(title string) Item {
	return Item{
		ID:          uuid.NewString(),
		Title:       title,
		Attachments: []Attachment{},
		UpdatedAt:   time.Now().Unix(),
	}
}

// Vault is the decrypted content of a vault file
type Vault struct {
	Items   []Item `json:"items"`
	Version uint32 `json:"version"`
}

// New returns an empty vault
func New() *Vault {
	return &Vault{
		Items:   []Item{},
		Version: FormatVersion,
	}
}

// Add appends a new item and returns it
func (v *Vault) Add(title string) Item {
	item := NewItem(title)
	v.Items = append(v.Items, item)
	return item
}

// Update replaces the item with the same id. It reports whether one was found.
func (v *Vault) Update(item Item) bool {
	for i := range v.Items {
		if v.Items[i].ID == item.ID {
			v.Items[i] = item
			return true
		}
	}
	return false
}

// Delete removes every item with id
func (v *Vault) Delete(id string) bool {
	kept := v.Items[:0]
	removed := false
	for _, item := range v.Items {
		if item.ID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	v.Items = kept
	return removed
}

// Find returns the item with id
func (v *Vault) Find(id string) (Item, bool) {
	for _, item := range v.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}
