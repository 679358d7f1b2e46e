package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedge/vaultsync/internal/patterns"
	"github.com/hedge/vaultsync/internal/server"
	"github.com/hedge/vaultsync/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchDebounce   time.Duration
	watchSplitMoves bool
	watchPatterns   []string
	watchIgnore     []string
)

var watchCmd = &cobra.Command{
	Use:   "watch <vault>",
	Short: "Print change events for the vault directory",
	Long: `Watch the directory containing the vault and print one line per
change to a matching vault file until interrupted.

Examples:
  vaultctl watch ~/vaults/personal.db
  vaultctl watch --debounce 500ms --split-moves ./work.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		matcher, err := patterns.NewVaultMatcher(watchPatterns, watchIgnore)
		if err != nil {
			return err
		}

		det := watcher.NewDetector(watcher.Options{
			Matcher:    matcher,
			SplitMoves: watchSplitMoves,
			Debounce:   watchDebounce,
			Logger:     logger,
		})
		defer det.Close()

		if err := det.Start(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Watching %s\n", det.Dir())

		for {
			select {
			case ev := <-det.Events():
				fmt.Printf("%s\t%s\t%s\n", ev.Timestamp.Format(time.RFC3339), ev.Kind, ev.Path)
			case <-ctx.Done():
				if err := det.Stop(); err != nil {
					logger.Warn("stop failed", zap.Error(err))
				}
				return nil
			}
		}
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream change events from a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := server.Dial(serverAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		err = client.StreamEvents(ctx, func(ev server.FileEvent) error {
			ts := time.UnixMilli(ev.Timestamp).Format(time.RFC3339)
			fmt.Printf("%s\t%s\t%s\n", ts, ev.Kind, ev.Path)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "coalesce events within this window")
	watchCmd.Flags().BoolVar(&watchSplitMoves, "split-moves", false, "report moves as created/deleted")
	watchCmd.Flags().StringSliceVar(&watchPatterns, "pattern", patterns.DefaultVaultPatterns, "vault file glob")
	watchCmd.Flags().StringSliceVar(&watchIgnore, "ignore", nil, "glob of files to ignore")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(eventsCmd)
}
