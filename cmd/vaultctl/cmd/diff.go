package cmd

import (
	"fmt"

	"github.com/hedge/vaultsync/internal/diff"
	"github.com/hedge/vaultsync/internal/vault"
	"github.com/spf13/cobra"
)

var diffPatch bool

var diffCmd = &cobra.Command{
	Use:   "diff <vault> <backup>",
	Short: "Compare a conflict backup with the current vault",
	Long: `Decrypt the vault and one of its conflict backups with the same
password and report which items differ.

Examples:
  vaultctl diff personal.db personal_2024-03-01_09-30-00.db
  vaultctl diff --patch personal.db personal_2024-03-01_09-30-00.db`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := vaultPassword(args[0])
		if err != nil {
			return err
		}
		defer vault.ClearBytes(password)

		current, err := vault.Load(args[0], password)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		backup, err := vault.Load(args[1], password)
		if err != nil {
			return fmt.Errorf("%s: %w", args[1], err)
		}

		report, err := diff.Compare(current, backup)
		if err != nil {
			return err
		}
		if report.Empty() {
			fmt.Println("vaults hold the same items")
			return nil
		}

		titles := make(map[string]string)
		for _, v := range []*vault.Vault{current, backup} {
			for _, item := range v.Items {
				titles[item.ID] = item.Title
			}
		}
		for _, id := range report.Added {
			fmt.Printf("+ %s %s\n", id, titles[id])
		}
		for _, id := range report.Removed {
			fmt.Printf("- %s %s\n", id, titles[id])
		}
		for _, id := range report.Changed {
			fmt.Printf("~ %s %s\n", id, titles[id])
		}
		fmt.Printf("%d lines added, %d lines removed\n", report.LinesAdded, report.LinesRemoved)

		if diffPatch {
			fmt.Println()
			fmt.Print(report.Patch)
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffPatch, "patch", false, "print the text patch")
	rootCmd.AddCommand(diffCmd)
}
