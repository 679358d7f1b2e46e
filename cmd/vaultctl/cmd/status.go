package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/hedge/vaultsync/internal/server"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync status reported by a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := server.Dial(serverAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		status, err := client.GetSyncStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
