package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hedge/vaultsync/internal/conflict"
	"github.com/spf13/cobra"
)

var conflictCmd = &cobra.Command{
	Use:   "conflict <vault>",
	Short: "Check whether a conflict backup of the vault exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		found, err := conflict.CheckConflict(args[0])
		if err != nil {
			return err
		}
		if found {
			fmt.Println("conflict")
		} else {
			fmt.Println("no conflict")
		}
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup <vault>",
	Short: "Copy the vault to a timestamped conflict backup",
	Long: `Copy the vault next to itself as {name}_{YYYY-MM-DD_HH-MM-SS}.{ext}.

Examples:
  vaultctl backup ~/vaults/personal.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := conflict.CreateBackup(args[0])
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups <vault>",
	Short: "List conflict backups of the vault, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backups, err := conflict.ListBackups(args[0])
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("no backups")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Size, b.ModTime.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(conflictCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupsCmd)
}
