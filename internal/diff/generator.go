package diff

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/hedge/vaultsync/internal/vault"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Report summarises how a conflict backup differs from the current vault
type Report struct {
	Added        []string // item ids only in the backup
	Removed      []string // item ids only in the current vault
	Changed      []string // item ids present in both with different content
	Patch        string
	LinesAdded   int
	LinesRemoved int
}

// Empty reports whether both vaults hold the same items
func (r *Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Generator compares decrypted vaults
type Generator struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewDiffGenerator creates a new diff generator
func NewDiffGenerator() *Generator {
	return &Generator{
		dmp: diffmatchpatch.New(),
	}
}

// Compare is a package-level function for convenience
func Compare(current, backup *vault.Vault) (*Report, error) {
	return NewDiffGenerator().Compare(current, backup)
}

// Compare diffs current against backup, item by item and as text
func (dg *Generator) Compare(current, backup *vault.Vault) (*Report, error) {
	report := &Report{}

	currentItems := indexItems(current)
	backupItems := indexItems(backup)

	for id, item := range backupItems {
		other, ok := currentItems[id]
		if !ok {
			report.Added = append(report.Added, id)
			continue
		}
		same, err := sameItem(item, other)
		if err != nil {
			return nil, err
		}
		if !same {
			report.Changed = append(report.Changed, id)
		}
	}
	for id := range currentItems {
		if _, ok := backupItems[id]; !ok {
			report.Removed = append(report.Removed, id)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Strings(report.Changed)

	oldText, err := render(current)
	if err != nil {
		return nil, err
	}
	newText, err := render(backup)
	if err != nil {
		return nil, err
	}

	report.Patch, report.LinesAdded, report.LinesRemoved = dg.GenerateUnifiedDiff(oldText, newText)
	return report, nil
}

// GenerateUnifiedDiff diffs two texts line by line and returns the patch text
// with the number of added and removed lines
func (dg *Generator) GenerateUnifiedDiff(oldContent, newContent string) (string, int, int) {
	a, b, lines := dg.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dg.dmp.DiffMain(a, b, false)
	diffs = dg.dmp.DiffCharsToLines(diffs, lines)

	linesAdded := 0
	linesRemoved := 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			linesAdded += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			linesRemoved += countLines(d.Text)
		}
	}

	patches := dg.dmp.PatchMake(oldContent, diffs)
	return dg.dmp.PatchToText(patches), linesAdded, linesRemoved
}

func countLines(text string) int {
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") && text != "" {
		n++
	}
	return n
}

func indexItems(v *vault.Vault) map[string]vault.Item {
	items := make(map[string]vault.Item)
	if v == nil {
		return items
	}
	for _, item := range v.Items {
		items[item.ID] = item
	}
	return items
}

func sameItem(a, b vault.Item) (bool, error) {
	aj, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return string(aj) == string(bj), nil
}

// render pretty-prints a vault with items sorted by id so the text diff only
// shows content changes
func render(v *vault.Vault) (string, error) {
	if v == nil {
		v = vault.New()
	}
	sorted := &vault.Vault{Version: v.Version, Items: append([]vault.Item(nil), v.Items...)}
	sort.Slice(sorted.Items, func(i, j int) bool {
		return sorted.Items[i].ID < sorted.Items[j].ID
	})

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
