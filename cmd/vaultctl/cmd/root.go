package cmd

import (
	"fmt"
	"os"

	"github.com/hedge/vaultsync/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	serverAddr string
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "vaultctl",
	Short: "Watch, back up and inspect encrypted vault files",
	Long: `vaultctl works with encrypted .db vault files.

It can watch a vault directory for changes, create and list conflict
backups, compare a backup with the current vault, and talk to a running
vaultsync server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewConsole(verbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:50051", "address of the vaultsync gRPC server")
}
